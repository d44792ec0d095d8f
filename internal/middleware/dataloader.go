package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/crmdash/internal/orgloader"

	"github.com/graph-gophers/dataloader"
)

const orgLoaderKey ctxKey = "orgLoader"

// DataLoaderMiddleware attaches a fresh organization loader to each request context.
func DataLoaderMiddleware(repo orgloader.Fetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := orgloader.NewOrgLoader(repo)
			ctx := context.WithValue(r.Context(), orgLoaderKey, loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OrgLoaderFromContext retrieves the organization loader from context
func OrgLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(orgLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
