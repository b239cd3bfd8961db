package auth

import "context"

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	ipAddressKey contextKey = "ip_address"
)

// WithUserID returns a context carrying the acting user. Every ledger write
// reads the actor from here instead of a hard-coded placeholder.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(userIDKey).(string); ok {
		return val
	}
	return ""
}

func WithIPAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ipAddressKey, addr)
}

func GetIPAddress(ctx context.Context) string {
	if val, ok := ctx.Value(ipAddressKey).(string); ok {
		return val
	}
	return "unknown"
}
