package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.liveusers/internal/model"
)

type sqliteStore struct {
	db *sqlx.DB
}

func NewSQLite(dsn string) (*sqliteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &sqliteStore{db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return store, nil
}

func (d *sqliteStore) Close() error {
	return d.db.Close()
}

func (d *sqliteStore) createTables() error {
	_, err := d.db.Exec(`create table if not exists user(
		ID        text not null primary key,
		FirstName text not null,
		LastName  text not null,
		Mobile    text not null,
		Email     text not null unique,
		Street    text not null default '',
		City      text not null default '',
		State     text not null default '',
		Country   text not null default '',
		LoginID   text not null unique,
		Password  text not null,
		CreatedAt DATETIME not null,
		UpdatedAt DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}

	_, err = d.db.Exec(`create index if not exists user_changed on user(CreatedAt, UpdatedAt)`)
	if err != nil {
		return fmt.Errorf("creating user index: %w", err)
	}

	return nil
}

func (d *sqliteStore) Save(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = model.UserID(model.CreateID())
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.FlattenAddress()

	res, err := d.db.NamedExecContext(ctx, `insert into user
		(ID, FirstName, LastName, Mobile, Email, Street, City, State, Country, LoginID, Password, CreatedAt, UpdatedAt)
		values(:ID, :FirstName, :LastName, :Mobile, :Email, :Street, :City, :State, :Country, :LoginID, :Password, :CreatedAt, :UpdatedAt)
		on conflict(ID) do update set
			FirstName = excluded.FirstName,
			LastName  = excluded.LastName,
			Mobile    = excluded.Mobile,
			Email     = excluded.Email,
			Street    = excluded.Street,
			City      = excluded.City,
			State     = excluded.State,
			Country   = excluded.Country,
			LoginID   = excluded.LoginID,
			Password  = excluded.Password,
			UpdatedAt = excluded.UpdatedAt`, user)

	if err != nil {
		if verr := uniqueViolation(err); verr != nil {
			return verr
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	if rows, err := res.RowsAffected(); rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	} else if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	return nil
}

func (d *sqliteStore) Find(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := d.db.SelectContext(ctx, &users, `select * from user order by CreatedAt`)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	return expandAll(users), nil
}

func (d *sqliteStore) FindByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return d.findOne(ctx, `select * from user where ID = ?`, id)
}

func (d *sqliteStore) FindByLoginID(ctx context.Context, loginID string) (*model.User, error) {
	return d.findOne(ctx, `select * from user where LoginID = ?`, loginID)
}

func (d *sqliteStore) FindChangedSince(ctx context.Context, cursor time.Time) ([]model.User, error) {
	users := []model.User{}
	cursor = cursor.UTC()
	err := d.db.SelectContext(ctx, &users, `select * from user where CreatedAt > ? or UpdatedAt > ? order by UpdatedAt`, cursor, cursor)
	if err != nil {
		return nil, fmt.Errorf("fetching changed users: %w", err)
	}
	return expandAll(users), nil
}

func (d *sqliteStore) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := d.db.GetContext(ctx, user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	user.ExpandAddress()
	return user, nil
}

func expandAll(users []model.User) []model.User {
	for i := range users {
		users[i].ExpandAddress()
	}
	return users
}

// uniqueViolation maps a unique constraint failure to the offending field.
func uniqueViolation(err error) *model.ValidationError {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "user.Email"):
		return model.NewValidationError("email", "email already exists")
	case strings.Contains(msg, "user.LoginID"):
		return model.NewValidationError("loginId", "login id already exists")
	}
	return model.NewValidationError("_id", "duplicate key")
}
