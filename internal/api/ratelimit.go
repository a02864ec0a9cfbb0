package api

import (
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/booksheet/booksheet-server/internal/errors"
)

// limitLoads is a per-operation middleware that rate limits imports and
// generations by client IP. Returns 429 Too Many Requests when exceeded.
func (s *Server) limitLoads(ctx huma.Context, next func(huma.Context)) {
	if s.loadLimiter == nil {
		next(ctx)
		return
	}

	key := clientIP(ctx.RemoteAddr())
	if !s.loadLimiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"operation", ctx.Operation().OperationID,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests,
			"Too many requests. Please try again later.", domainerrors.ErrRateLimited)
		return
	}

	next(ctx)
}

// clientIP strips the port from a remote address. chi's RealIP middleware
// has already applied X-Forwarded-For and X-Real-IP by the time this runs.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
