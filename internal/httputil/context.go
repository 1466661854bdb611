package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const actorIDKey contextKey = "actorID"

// WithActorID adds the authenticated actor id to the request context
func WithActorID(r *http.Request, actorID string) *http.Request {
	ctx := context.WithValue(r.Context(), actorIDKey, actorID)
	return r.WithContext(ctx)
}

// GetActorID retrieves the actor id from context, empty string if not set
func GetActorID(r *http.Request) string {
	actorID, _ := r.Context().Value(actorIDKey).(string)
	return actorID
}
