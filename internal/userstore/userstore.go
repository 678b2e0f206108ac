package userstore

import (
	"context"
	"fmt"
	"path"
	"time"

	"uk.co.dudmesh.liveusers/internal/boot"
	"uk.co.dudmesh.liveusers/internal/model"
)

// Store is the durable record store for users. Implementations enforce
// uniqueness of email and login id and report violations as
// *model.ValidationError.
type Store interface {
	Save(ctx context.Context, user *model.User) error
	Find(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id model.UserID) (*model.User, error)
	FindByLoginID(ctx context.Context, loginID string) (*model.User, error)
	FindChangedSince(ctx context.Context, cursor time.Time) ([]model.User, error)
	Close() error
}

// Open connects to the store selected by config. A failure here is meant to
// be fatal to the caller.
func Open(ctx context.Context, config *boot.Config) (Store, error) {
	switch config.Store.Driver {
	case boot.StoreDriverSQLite:
		dsn := "file:" + path.Join(config.Store.DataDir, config.Store.SQLiteFile)
		return NewSQLite(dsn)
	case boot.StoreDriverMongo:
		return NewMongo(ctx, MongoOptions{
			URI:                    config.Mongo.URI,
			Database:               config.Mongo.Database,
			ServerSelectionTimeout: config.Mongo.ServerSelectionTimeout,
			SocketTimeout:          config.Mongo.SocketTimeout,
		})
	}
	return nil, fmt.Errorf("unknown store driver: %s", config.Store.Driver)
}
