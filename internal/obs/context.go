package obs

import "context"

type routePatternKey struct{}

type requestFieldsKey struct{}

// requestFields is filled in by handlers and read back by RequestLogger once
// the handler returns.
type requestFields struct {
	cartID string
	rules  int
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

func withRequestFields(ctx context.Context) (context.Context, *requestFields) {
	fields := &requestFields{}
	return context.WithValue(ctx, requestFieldsKey{}, fields), fields
}

// AnnotateCart attaches the evaluated cart id and rule count to the request
// log line. It is a no-op outside RequestLogger.
func AnnotateCart(ctx context.Context, cartID string, rules int) {
	if ctx == nil {
		return
	}
	if fields, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		fields.cartID = cartID
		fields.rules = rules
	}
}
