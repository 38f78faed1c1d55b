package generation

import (
	"github.com/af-corp/showcase-gateway/internal/router/adapters"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// ProviderStatus is the health summary of one image provider.
type ProviderStatus struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	AuthMode      string `json:"auth_mode"`
	Configured    bool   `json:"configured"`
	Circuit       string `json:"circuit"`
	TokenState    string `json:"token_state,omitempty"`
	LastErrorCode string `json:"last_error_code,omitempty"`
}

// Status reports every registered image provider. creds are merged with
// provider config when judging whether a provider is usable.
func (s *Service) Status(creds types.Credentials) []ProviderStatus {
	registry := s.deps.Registry()
	names := registry.ImageNames()
	out := make([]ProviderStatus, 0, len(names))

	for _, name := range names {
		a, ok := registry.Image(name)
		if !ok {
			continue
		}
		st := ProviderStatus{
			Name:          name,
			Type:          a.Name(),
			AuthMode:      a.Mode().String(),
			Configured:    a.Configured(creds),
			Circuit:       "closed",
			LastErrorCode: s.LastErrorCode(name),
		}
		if s.deps.Health != nil {
			st.Circuit = s.deps.Health.State(name).String()
		}
		if tp, ok := a.(adapters.TokenClientProvider); ok && registry.Tokens() != nil {
			st.TokenState = string(registry.Tokens().State(tp.TokenClient(creds).Key))
		}
		out = append(out, st)
	}
	return out
}
