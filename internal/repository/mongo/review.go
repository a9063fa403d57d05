package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

var _ repository.ReviewRepository = (*Store)(nil)

func (s *Store) CreateReview(ctx context.Context, review *model.Review) error {
	author, err := primitive.ObjectIDFromHex(review.Author)
	if err != nil {
		return apperror.ValidationFailed("author", "invalid author id")
	}
	coll, err := s.collection(ctx, reviewsCollection)
	if err != nil {
		return err
	}

	doc := reviewDoc{
		ID:        primitive.NewObjectID(),
		Body:      review.Body,
		Rating:    review.Rating,
		Author:    author,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting review: %w", err)
	}

	review.ID = doc.ID.Hex()
	review.CreatedAt = doc.CreatedAt
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (*model.Review, error) {
	oid, err := objectID("review", id)
	if err != nil {
		return nil, err
	}
	coll, err := s.collection(ctx, reviewsCollection)
	if err != nil {
		return nil, err
	}

	var doc reviewDoc
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, "review", id)
	}
	r := doc.model()
	return &r, nil
}

// GetReviewsByIDs resolves ids with one $in query and restores their order.
func (s *Store) GetReviewsByIDs(ctx context.Context, ids []string) ([]model.Review, error) {
	out := []model.Review{}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return out, nil
	}

	docs, err := s.findReviews(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}

	found := make(map[string]model.Review, len(docs))
	for _, r := range docs {
		found[r.ID] = r
	}
	for _, id := range ids {
		if r, ok := found[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	oid, err := objectID("review", id)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, reviewsCollection)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting review %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

func (s *Store) CountReviewsByAuthor(ctx context.Context, authorID string) (int64, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return 0, nil
	}
	coll, err := s.collection(ctx, reviewsCollection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"author": author})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting reviews of %s: %w", authorID, err)
	}
	return n, nil
}

func (s *Store) RecentReviewsByAuthor(ctx context.Context, authorID string, limit int) ([]model.Review, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return []model.Review{}, nil
	}
	return s.findReviews(ctx, bson.M{"author": author},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)),
	)
}

func (s *Store) findReviews(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Review, error) {
	coll, err := s.collection(ctx, reviewsCollection)
	if err != nil {
		return nil, err
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: querying reviews: %w", err)
	}
	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding reviews: %w", err)
	}

	out := make([]model.Review, len(docs))
	for i := range docs {
		out[i] = docs[i].model()
	}
	return out, nil
}
