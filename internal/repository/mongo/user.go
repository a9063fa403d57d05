package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

// CreateUser inserts a user. Duplicate usernames or emails hit the unique
// indexes and come back as apperror.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	coll, err := s.collection(ctx, usersCollection)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Avatar:       toImageDoc(user.Avatar),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("Username or email already in use")
		}
		return fmt.Errorf("mongo: inserting user %q: %w", user.Username, err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid}, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username}, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	coll, err := s.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err, "user", key)
	}
	return doc.model(), nil
}

// UpdateUser sets email, password hash and avatar; a nil avatar is unset.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	oid, err := objectID("user", user.ID)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, usersCollection)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"email":     user.Email,
		"hash":      user.PasswordHash,
		"updatedAt": user.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if user.Avatar != nil {
		set["avatar"] = toImageDoc(user.Avatar)
	} else {
		update["$unset"] = bson.M{"avatar": ""}
	}

	res, err := coll.UpdateByID(ctx, oid, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("Email already in use")
		}
		return fmt.Errorf("mongo: updating user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}
