package httpx

import "context"

// ownerKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type ownerKey struct{}

// SetOwnerInContext returns a child context that carries the authenticated
// owner id. An empty id returns the original ctx unchanged.
func SetOwnerInContext(ctx context.Context, ownerID string) context.Context {
	if ownerID == "" {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the authenticated owner id and a boolean
// indicating presence.
func OwnerFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(ownerKey{}).(string); ok && id != "" {
		return id, true
	}
	return "", false
}
