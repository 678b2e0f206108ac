package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.liveusers/internal/broadcast"
	"uk.co.dudmesh.liveusers/internal/model"
)

type Cache interface {
	List() ([]model.PresenceEntry, error)
	SetConnection(id model.UserID, tag string, event string) (model.PresenceEntry, error)
	ReleaseConnection(connection string, tag string, event string) (model.PresenceEntry, error)
}

type Reconciler interface {
	Sync(ctx context.Context) []model.PresenceEntry
}

type Emitter interface {
	Emit(c broadcast.Subscriber, event string, data interface{}) error
}

type TokenVerifier interface {
	Verify(token string) (model.UserID, error)
}

// router tracks which presence entry belongs to which live connection.
type router struct {
	cache    Cache
	engine   Reconciler
	emitter  Emitter
	verifier TokenVerifier
	log      *log.Logger
	now      func() time.Time
}

// New builds a router. When verifier is non-nil, login announcements must
// carry a session token issued for the announced identity.
func New(cache Cache, engine Reconciler, emitter Emitter, verifier TokenVerifier, logger *log.Logger) *router {
	return &router{
		cache:    cache,
		engine:   engine,
		emitter:  emitter,
		verifier: verifier,
		log:      logger,
		now:      time.Now,
	}
}

// Connect reconciles with the store, then sends the new connection a full
// snapshot of the cache.
func (r *router) Connect(ctx context.Context, conn broadcast.Subscriber) error {
	r.log.Infof("client connected: %s", conn.ID())
	return r.Refresh(ctx, conn)
}

// Refresh runs an on-demand pass and replies with a snapshot to conn only.
func (r *router) Refresh(ctx context.Context, conn broadcast.Subscriber) error {
	r.engine.Sync(ctx)

	snapshot, err := r.cache.List()
	if err != nil {
		return fmt.Errorf("listing presence entries: %w", err)
	}
	if err := r.emitter.Emit(conn, model.EventInitialUsers, snapshot); err != nil {
		return fmt.Errorf("sending snapshot: %w", err)
	}
	return nil
}

// Announce associates conn with the announced identity and broadcasts the
// change.
func (r *router) Announce(conn broadcast.Subscriber, params *model.AnnounceLoginParams) (model.PresenceEntry, error) {
	if params.UserID == "" {
		return model.PresenceEntry{}, model.ErrorUserNotFound
	}
	if r.verifier != nil {
		subject, err := r.verifier.Verify(params.Token)
		if err != nil {
			return model.PresenceEntry{}, err
		}
		if subject != params.UserID {
			return model.PresenceEntry{}, model.ErrorInvalidToken
		}
	}

	entry, err := r.cache.SetConnection(params.UserID, conn.ID(), model.EventPresenceUpdated)
	if err != nil {
		return model.PresenceEntry{}, fmt.Errorf("announcing %s: %w", params.UserID, err)
	}
	r.log.Infof("user %s online on %s", entry.ID, conn.ID())
	return entry, nil
}

// Disconnect marks the first entry tagged with connection as offline. A
// connection that never announced an identity is a no-op.
func (r *router) Disconnect(connection string) {
	r.log.Infof("client disconnected: %s", connection)

	entry, err := r.cache.ReleaseConnection(connection, model.OfflineTag(r.now()), model.EventPresenceUpdated)
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			r.log.Infof("no user associated with %s", connection)
			return
		}
		if errors.Is(err, model.ErrorCacheClosed) {
			return
		}
		r.log.Errorf("releasing %s: %+v", connection, err)
		return
	}
	r.log.Infof("user %s offline", entry.ID)
}

// Logout marks the named identity offline.
func (r *router) Logout(userID model.UserID) (model.PresenceEntry, error) {
	entry, err := r.cache.SetConnection(userID, model.OfflineTag(r.now()), model.EventPresenceUpdated)
	if err != nil {
		return model.PresenceEntry{}, fmt.Errorf("logging out %s: %w", userID, err)
	}
	return entry, nil
}
