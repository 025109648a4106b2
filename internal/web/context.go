package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/welltrack/internal/core"
	mw "github.com/JonMunkholm/welltrack/internal/web/middleware"
)

// withRequestMeta carries the client address and user agent into the
// service for the audit trail. RemoteAddr has already been corrected by
// TrustedRealIP.
func withRequestMeta(r *http.Request) context.Context {
	ip := r.RemoteAddr
	if parsed := mw.ClientIP(r.RemoteAddr); parsed != nil {
		ip = parsed.String()
	}
	return core.ContextWithRequestMeta(r.Context(), ip, r.UserAgent())
}
