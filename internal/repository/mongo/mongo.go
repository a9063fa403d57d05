// Package mongo implements the repository interfaces on MongoDB.
//
// Three collections hold the documents: users, campgrounds and reviews, all
// keyed by ObjectID. A campground embeds its image list and holds its
// reviews as an array of ObjectIDs; reviews reference their author the same
// way.
//
// LAZY CONNECTION:
// New does no I/O. The client is dialled on first use and reused for the
// life of the process. Concurrent first calls share one dial through a
// singleflight group; a failed dial is not cached, so the next request tries
// again.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/repository"
)

const (
	usersCollection       = "users"
	campgroundsCollection = "campgrounds"
	reviewsCollection     = "reviews"

	connectTimeout = 10 * time.Second
)

var _ repository.Store = (*Store)(nil)

// Store is a MongoDB-backed document store.
type Store struct {
	uri      string
	database string

	group  singleflight.Group
	client atomic.Pointer[mongo.Client]

	// dials counts successful connections; tests assert it stays at one.
	dials atomic.Int32
}

// New returns a Store for uri and database. Nothing is dialled yet.
func New(uri, database string) *Store {
	if database == "" {
		database = "journeyhub"
	}
	return &Store{uri: uri, database: database}
}

// Ping forces the lazy connection and checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	return c.Ping(ctx, readpref.Primary())
}

// Close disconnects the client if one was ever established.
func (s *Store) Close() error {
	c := s.client.Swap(nil)
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.Disconnect(ctx)
}

// connect returns the shared client, dialling it on first use.
func (s *Store) connect(ctx context.Context) (*mongo.Client, error) {
	if c := s.client.Load(); c != nil {
		return c, nil
	}

	v, err, _ := s.group.Do("connect", func() (any, error) {
		if c := s.client.Load(); c != nil {
			return c, nil
		}

		// The dial outlives the request that happened to trigger it.
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), connectTimeout)
		defer cancel()

		c, err := mongo.Connect(dialCtx, options.Client().ApplyURI(s.uri))
		if err != nil {
			return nil, fmt.Errorf("mongo: connecting: %w", err)
		}
		if err := c.Ping(dialCtx, readpref.Primary()); err != nil {
			c.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo: pinging: %w", err)
		}
		if err := ensureIndexes(dialCtx, c.Database(s.database)); err != nil {
			c.Disconnect(context.Background())
			return nil, err
		}

		s.client.Store(c)
		s.dials.Add(1)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

// collection returns a handle on one of the store's collections.
func (s *Store) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	return c.Database(s.database).Collection(name), nil
}

// ensureIndexes creates the unique and lookup indexes. CreateMany is a
// no-op for indexes that already exist with the same definition.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating user indexes: %w", err)
	}

	_, err = db.Collection(campgroundsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "reviews", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating campground indexes: %w", err)
	}

	_, err = db.Collection(reviewsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating review indexes: %w", err)
	}
	return nil
}

// objectID parses a hex id. Anything that is not a valid ObjectID cannot
// name a stored document, so it is reported as not found.
func objectID(resource, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(resource, id)
	}
	return oid, nil
}

// notFound translates mongo.ErrNoDocuments.
func notFound(err error, resource, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("mongo: getting %s %s: %w", resource, id, err)
}
