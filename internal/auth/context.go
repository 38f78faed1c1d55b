package auth

import "context"

type contextKey string

const authContextKey contextKey = "showcase_auth"

// AuthInfo holds the identity of the client key that made the request.
type AuthInfo struct {
	KeyID            string
	Name             string
	AllowedProviders []string
	RPMLimit         *int
	DailyImageQuota  *int
}

func (a *AuthInfo) AllowsProvider(name string) bool {
	return allowsProvider(a.AllowedProviders, name)
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
