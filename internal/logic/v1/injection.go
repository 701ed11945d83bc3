package v1

import (
	"context"

	"github.com/breeew/otterly-api/pkg/security"
)

const (
	TOKEN_CONTEXT_KEY = "__otterly.access_token"
)

// InjectTokenClaim get user token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

// WithTokenClaim binds claims to ctx the same way the authorization middleware does for gin.
func WithTokenClaim(ctx context.Context, claims security.TokenClaims) context.Context {
	return context.WithValue(ctx, TOKEN_CONTEXT_KEY, claims)
}
