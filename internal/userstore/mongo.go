package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"uk.co.dudmesh.liveusers/internal/model"
)

const (
	usersCollection = "users"
	indexEmail      = "email_1"
	indexLoginID    = "loginId_1"
)

type MongoOptions struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

type mongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

func NewMongo(ctx context.Context, opts MongoOptions) (*mongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetSocketTimeout(opts.SocketTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w: %w", model.ErrorStoreUnavailable, err)
	}

	store := &mongoStore{
		client: client,
		users:  client.Database(opts.Database).Collection(usersCollection),
	}
	if err := store.createIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return store, nil
}

func (s *mongoStore) createIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(indexEmail).SetUnique(true)},
		{Keys: bson.D{{Key: "loginId", Value: 1}}, Options: options.Index().SetName(indexLoginID).SetUnique(true)},
		{Keys: bson.D{{Key: "updatedAt", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	return err
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) Save(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = model.UserID(primitive.NewObjectID().Hex())
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateKey(err)
		}
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

func (s *mongoStore) Find(ctx context.Context) ([]model.User, error) {
	return s.find(ctx, bson.M{})
}

func (s *mongoStore) FindByID(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoStore) FindByLoginID(ctx context.Context, loginID string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"loginId": loginID})
}

func (s *mongoStore) FindChangedSince(ctx context.Context, cursor time.Time) ([]model.User, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"createdAt": bson.M{"$gt": cursor}},
		bson.M{"updatedAt": bson.M{"$gt": cursor}},
	}})
}

func (s *mongoStore) find(ctx context.Context, filter bson.M) ([]model.User, error) {
	cur, err := s.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding users: %w", err)
	}
	users := []model.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	user := &model.User{}
	err := s.users.FindOne(ctx, filter).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

// duplicateKey maps a unique index violation to the field its index guards.
func duplicateKey(err error) *model.ValidationError {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			switch violatedIndex(e.Message) {
			case indexEmail:
				return model.NewValidationError("email", "email already exists")
			case indexLoginID:
				return model.NewValidationError("loginId", "login id already exists")
			}
		}
	}
	return model.NewValidationError("_id", "duplicate key")
}

func violatedIndex(message string) string {
	_, rest, ok := strings.Cut(message, "index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}
