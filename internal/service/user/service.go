package user

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"uk.co.dudmesh.liveusers/internal/model"
)

type Store interface {
	Save(ctx context.Context, user *model.User) error
	Find(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id model.UserID) (*model.User, error)
	FindByLoginID(ctx context.Context, loginID string) (*model.User, error)
}

type Cache interface {
	Upsert(entry model.PresenceEntry, event string) error
}

type TokenIssuer interface {
	Issue(userID model.UserID) (string, error)
}

type LoginResult struct {
	User  *model.User
	Token string
}

type service struct {
	store      Store
	cache      Cache
	tokens     TokenIssuer
	bcryptCost int
	log        *log.Logger
	now        func() time.Time
}

func New(store Store, cache Cache, tokens TokenIssuer, bcryptCost int, logger *log.Logger) *service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &service{
		store:      store,
		cache:      cache,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        logger,
		now:        time.Now,
	}
}

// Create validates and persists a new user, then adds it to the presence
// cache as offline.
func (s *service) Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generating encoded password: %w", err)
	}

	user := model.NewUserFromParams(params)
	user.Password = base64.StdEncoding.EncodeToString(passwordBytes)

	if err := s.store.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}

	entry := model.NewPresenceEntry(user, model.OfflineTag(s.now()))
	if err := s.cache.Upsert(entry, model.EventUserAdded); err != nil {
		s.log.Errorf("caching new user %s: %+v", user.ID, err)
	}

	return user, nil
}

func (s *service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	return users, nil
}

func (s *service) Fetch(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

// Login checks credentials and marks the user as awaiting a connection. An
// unknown login id and a wrong password are indistinguishable to the caller.
func (s *service) Login(ctx context.Context, params *model.LoginParams) (*LoginResult, error) {
	user, err := s.store.FindByLoginID(ctx, params.LoginID)
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return nil, model.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	if err := checkPassword(user.Password, params.Password); err != nil {
		return nil, err
	}

	entry := model.NewPresenceEntry(user, model.ConnectionTagPending)
	if err := s.cache.Upsert(entry, model.EventUserAdded); err != nil {
		return nil, fmt.Errorf("caching user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

func checkPassword(encoded string, password string) error {
	hash, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding stored password: %w", err)
	}
	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.ErrorInvalidCredentials
		}
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}
