// Package actor identifies the user performing a stock mutation so that
// history entries can record who acted. The surrounding deployment handles
// authentication; this package only carries the identity through contexts.
package actor

import "context"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// Name is the display name recorded on history entries
	Name string `json:"name"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil || a.Name == "" {
		return "system"
	}
	return a.Name
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// NameFromContext returns the acting user's name, or empty for system operations.
func NameFromContext(ctx context.Context) string {
	a := FromContext(ctx)
	if a == nil {
		return ""
	}
	return a.Name
}
