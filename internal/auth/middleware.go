package auth

import (
	"net/http"
	"strings"

	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/rs/zerolog"
)

// Authenticate attaches the actor from a bearer token or the session cookie. Requests without
// credentials pass through anonymously; bad credentials are rejected.
func Authenticate(tokens *Tokens, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" && cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					tokenStr = c.Value
				}
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := tokens.Parse(tokenStr)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("rejected session token")
				httpx.WriteError(w, r, http.StatusUnauthorized, "unauthenticated", "invalid or expired session", nil)
				return
			}

			ctx := ContextWithActor(r.Context(), actor)
			logger := zerolog.Ctx(ctx).With().Int64("actor_id", actor.ID).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

// RequireActor rejects anonymous requests.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			httpx.WriteError(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
