package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokensRequiresSecret(t *testing.T) {
	tokens, err := NewTokens("", time.Hour)
	require.Error(t, err)
	require.Nil(t, tokens)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Hour)
	require.NoError(t, err)

	tokenStr, err := tokens.Issue(domain.Actor{ID: 42, Name: "Ada"})
	require.NoError(t, err)

	actor, err := tokens.Parse(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 42, Name: "Ada"}, actor)
}

func TestTokensRejectsBadTokens(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokens("other", time.Hour)
		require.NoError(t, err)
		tokenStr, err := other.Issue(domain.Actor{ID: 1})
		require.NoError(t, err)

		_, err = tokens.Parse(tokenStr)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past, err := NewTokens("s3cret", time.Minute)
		require.NoError(t, err)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tokenStr, err := past.Issue(domain.Actor{ID: 1})
		require.NoError(t, err)

		_, err = tokens.Parse(tokenStr)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(tokenStr)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("bad subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "abc",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tokenStr, err := token.SignedString([]byte("s3cret"))
		require.NoError(t, err)

		_, err = tokens.Parse(tokenStr)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	tokens, err := NewTokens("s3cret", time.Hour)
	require.NoError(t, err)
	tokenStr, err := tokens.Issue(domain.Actor{ID: 7, Name: "Grace"})
	require.NoError(t, err)

	var seen domain.Actor
	var authenticated bool
	handler := Authenticate(tokens, "session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, authenticated = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.True(t, authenticated)
		assert.Equal(t, int64(7), seen.ID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: tokenStr})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "Grace", seen.Name)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, authenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthenticated")
	})
}

func TestRequireActor(t *testing.T) {
	handler := RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), domain.Actor{ID: 3}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
