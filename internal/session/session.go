// Package session manages HTTP sessions and the actor context used to stamp
// events with the acting user and session.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// uidKey is the session key holding the authenticated user ID.
const uidKey = "uid"

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	// Use SQLite store
	sm.Store = sqlite3store.New(db)

	// Configure session
	sm.Lifetime = 24 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}

// Actor identifies who performed a request: the session token and, when
// authenticated, the user ID. A zero Actor means anonymous.
type Actor struct {
	UID       int64
	SessionID string
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored in the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// SetUID records the authenticated user ID in the session.
func SetUID(sm *scs.SessionManager, ctx context.Context, uid int64) {
	sm.Put(ctx, uidKey, uid)
}

// Middleware loads the session for each request and stores the derived actor
// in the request context. It must wrap handlers after sm.LoadAndSave.
func Middleware(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := Actor{
				UID:       sm.GetInt64(r.Context(), uidKey),
				SessionID: sm.Token(r.Context()),
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// ContextActorProvider resolves the acting user and session from the request
// context populated by Middleware.
type ContextActorProvider struct{}

// ActorUID returns the acting user ID, or zero for anonymous requests.
func (ContextActorProvider) ActorUID(ctx context.Context) int64 {
	actor, _ := ActorFromContext(ctx)
	return actor.UID
}

// ActorSessionID returns the acting session token, or empty when there is
// no session.
func (ContextActorProvider) ActorSessionID(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.SessionID
}
