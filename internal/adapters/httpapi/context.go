package httpapi

import (
	"context"

	"github.com/transitops/user-service/internal/platform/auth/jwtverifier"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p jwtverifier.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (jwtverifier.Principal, bool) {
	v, ok := ctx.Value(principalKey{}).(jwtverifier.Principal)
	return v, ok && v.Subject != ""
}
