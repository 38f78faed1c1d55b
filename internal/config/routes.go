package config

// RoutesConfig maps a capability ("image", "text") to an ordered provider list.
type RoutesConfig struct {
	Routes map[string]Route `yaml:"routes"`
}

type Route struct {
	Primary  string   `yaml:"primary"`
	Fallback []string `yaml:"fallback"`
}

// Candidates returns the primary followed by fallbacks, skipping blanks.
func (r Route) Candidates() []string {
	out := make([]string, 0, 1+len(r.Fallback))
	if r.Primary != "" {
		out = append(out, r.Primary)
	}
	for _, f := range r.Fallback {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
