// Package middleware provides the HTTP middleware chain for the pipenet
// API server.
//
// Every middleware has the shape func(http.Handler) http.Handler, so a
// chain is built by nesting:
//
//	handler := middleware.Metrics(registry)(mux)
//	handler = middleware.JWTAuth(authCfg, logger)(handler)
//	handler = middleware.RateLimit(limiter, middleware.ClientIPFunc(nil), nil)(handler)
//	handler = middleware.BodySizeLimit(1 << 20)(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.PanicRecovery(logger)(handler)
//
// Metrics must wrap the ServeMux directly: it labels requests with the
// matched route pattern, which the mux records on the request it receives.
package middleware
