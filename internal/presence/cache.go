// Package presence holds the live presence cache: every user record the
// process has observed, keyed by identity, together with the connection tag
// that user is associated with. Entries are never evicted.
package presence

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-memdb"
	"uk.co.dudmesh.liveusers/internal/model"
)

const (
	table           = "presence"
	indexID         = "id"
	indexConnection = "connection"
)

// Publisher receives an event for every cache mutation that names one.
type Publisher interface {
	Publish(event string, payload interface{})
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			table: {
				Name: table,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexConnection: {
						Name:         indexConnection,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "SocketID"},
					},
				},
			},
		},
	}
}

// Cache is safe for concurrent use. Writers are serialised and publish their
// event before the next writer runs, so events leave in mutation order.
type Cache struct {
	mu     sync.Mutex
	db     *memdb.MemDB
	pub    Publisher
	closed bool
}

func New(pub Publisher) (*Cache, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("creating presence db: %w", err)
	}
	return &Cache{db: db, pub: pub}, nil
}

// Close stops the cache accepting writes. Reads keep working on the final state.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Upsert replaces the entry for entry.ID and publishes event, if not empty.
func (c *Cache) Upsert(entry model.PresenceEntry, event string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.ErrorCacheClosed
	}

	txn := c.db.Txn(true)
	if err := txn.Insert(table, &entry); err != nil {
		txn.Abort()
		return fmt.Errorf("inserting presence entry: %w", err)
	}
	txn.Commit()

	c.publish(event, entry)
	return nil
}

// SetConnection moves the entry for id to tag.
func (c *Cache) SetConnection(id model.UserID, tag string, event string) (model.PresenceEntry, error) {
	return c.update(indexID, string(id), tag, event)
}

// ReleaseConnection moves the first entry tagged with connection to tag.
func (c *Cache) ReleaseConnection(connection string, tag string, event string) (model.PresenceEntry, error) {
	return c.update(indexConnection, connection, tag, event)
}

func (c *Cache) update(index string, key string, tag string, event string) (model.PresenceEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.PresenceEntry{}, model.ErrorCacheClosed
	}

	txn := c.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(table, index, key)
	if err != nil {
		return model.PresenceEntry{}, fmt.Errorf("looking up presence entry: %w", err)
	}
	if raw == nil {
		return model.PresenceEntry{}, model.ErrorUserNotFound
	}

	entry := *raw.(*model.PresenceEntry)
	entry.SocketID = tag
	if err := txn.Insert(table, &entry); err != nil {
		return model.PresenceEntry{}, fmt.Errorf("updating presence entry: %w", err)
	}
	txn.Commit()

	c.publish(event, entry)
	return entry, nil
}

func (c *Cache) publish(event string, entry model.PresenceEntry) {
	if event == "" || c.pub == nil {
		return
	}
	c.pub.Publish(event, entry)
}

func (c *Cache) Get(id model.UserID) (model.PresenceEntry, error) {
	return c.first(indexID, string(id))
}

func (c *Cache) Has(id model.UserID) bool {
	_, err := c.Get(id)
	return err == nil
}

func (c *Cache) first(index string, key string) (model.PresenceEntry, error) {
	txn := c.db.Txn(false)
	raw, err := txn.First(table, index, key)
	if err != nil {
		return model.PresenceEntry{}, fmt.Errorf("looking up presence entry: %w", err)
	}
	if raw == nil {
		return model.PresenceEntry{}, model.ErrorUserNotFound
	}
	return *raw.(*model.PresenceEntry), nil
}

// List returns a point-in-time copy of every entry. Order is unspecified.
func (c *Cache) List() ([]model.PresenceEntry, error) {
	txn := c.db.Txn(false)
	it, err := txn.Get(table, indexID)
	if err != nil {
		return nil, fmt.Errorf("listing presence entries: %w", err)
	}

	entries := []model.PresenceEntry{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entries = append(entries, *raw.(*model.PresenceEntry))
	}
	return entries, nil
}

func (c *Cache) Len() int {
	entries, err := c.List()
	if err != nil {
		return 0
	}
	return len(entries)
}
