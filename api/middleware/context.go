package middleware

import "context"

type contextKey int

const (
	ctxActor contextKey = iota
	ctxCartSession
)

// Actor is the authenticated admin behind a request.
type Actor struct {
	Subject  string
	Role     string
	AccessID string
}

// WithActor injects an authenticated actor into the context.
func WithActor(ctx context.Context, subject, role, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, Actor{Subject: subject, Role: role, AccessID: accessID})
}

// ActorFromContext returns the actor set by Auth, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(Actor)
	return actor, ok
}

func SubjectFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Subject
}

func RoleFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Role
}

// AccessIDFromContext returns the jti of the admin token on the request.
func AccessIDFromContext(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.AccessID
}

// WithCartSession injects the cart session id into the context.
func WithCartSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartSession, sessionID)
}

// CartSessionFromContext returns the cart session id resolved by CartSession.
func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sessionID, _ := ctx.Value(ctxCartSession).(string)
	return sessionID
}
