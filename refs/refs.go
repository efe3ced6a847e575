// Package refs rewrites the relative references stored in resource metadata
// (meta.location) into absolute URLs at serialization time, using a base URL
// established once per request by Middleware.
//
// Mirrors the original implementation's tokio::task_local! BASE_URL: a value
// scoped to the lifetime of one request, set by entry middleware, read by
// serializers with no explicit threading through intervening call sites.
package refs

import (
	"context"
	"net/http"
	"strings"

	"github.com/platformed/scimcore/spec"
)

type baseURLKey struct{}

// WithBaseURL returns a context carrying base as the request's absolute base URL
// (e.g. "https://scim.example.com/v2").
func WithBaseURL(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, baseURLKey{}, strings.TrimSuffix(base, "/"))
}

// BaseURL returns the base URL stored in ctx, or "" if none was established.
func BaseURL(ctx context.Context) string {
	base, _ := ctx.Value(baseURLKey{}).(string)
	return base
}

// Rewrite concatenates ctx's base URL with a relative reference such as
// "/Users/42". A reference that is already absolute (contains "://") is
// returned unchanged.
func Rewrite(ctx context.Context, relative string) string {
	if relative == "" || strings.Contains(relative, "://") {
		return relative
	}
	base := BaseURL(ctx)
	if base == "" {
		return relative
	}
	if !strings.HasPrefix(relative, "/") {
		relative = "/" + relative
	}
	return base + relative
}

// LocateMeta rewrites m.Location in place to an absolute URL using ctx's base
// URL. A nil m is a no-op.
func LocateMeta(ctx context.Context, m *spec.Meta) {
	if m == nil {
		return
	}
	m.Location = Rewrite(ctx, m.Location)
}

// Middleware establishes the request-scoped base URL from the inbound request's
// scheme and host, honoring X-Forwarded-Proto/X-Forwarded-Host when a reverse
// proxy set them, and serves the wrapped handler with that value in its context.
func Middleware(prefix string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		host := r.Host
		if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
			host = fwd
		}
		base := scheme + "://" + host + strings.TrimSuffix(prefix, "/")
		ctx := WithBaseURL(r.Context(), base)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
