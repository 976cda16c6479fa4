package http

import "context"

type contextKey struct{}

// requestInfo is attached to every request by the request ID middleware.
type requestInfo struct {
	ID       string
	ClientIP string
}

// RequestIDFromContext returns the request identifier, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	return requestInfoFromContext(ctx).ID
}

func requestInfoFromContext(ctx context.Context) requestInfo {
	if ctx == nil {
		return requestInfo{}
	}
	info, _ := ctx.Value(contextKey{}).(requestInfo)
	return info
}

func withRequestInfo(ctx context.Context, info requestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}
