package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sentinel-iam/auth-service/internal/service"
	"github.com/sentinel-iam/auth-service/internal/transport/http/apierrors"
)

type ctxClaimsKey struct{}

// ClaimsFrom возвращает содержимое access-токена, положенное RequireAuth.
func ClaimsFrom(ctx context.Context) (service.Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey{}).(service.Claims)
	return claims, ok
}

// RequireAuth извлекает Bearer-токен из Authorization, валидирует его через
// сервисный слой и кладёт содержимое токена в контекст запроса.
// Отсутствующий или непроходящий проверку токен завершает запрос 401.
func RequireAuth(svc *service.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			claims, err := svc.ValidateAccessToken(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
