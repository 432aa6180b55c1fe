package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/binfilter/internal/core"
	"github.com/JonMunkholm/binfilter/internal/web/middleware"
)

// withRequestMetadata attaches the client address for load history.
// TrustedRealIP has already resolved r.RemoteAddr.
func withRequestMetadata(r *http.Request) context.Context {
	return core.ContextWithClientIP(r.Context(), middleware.ClientIP(r))
}
