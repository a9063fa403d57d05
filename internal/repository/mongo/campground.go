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

var _ repository.CampgroundRepository = (*Store)(nil)

// summaryProjection selects the list shape and nothing else.
var summaryProjection = bson.M{"title": 1, "location": 1, "price": 1, "images": 1, "geometry": 1}

func (s *Store) CreateCampground(ctx context.Context, camp *model.Campground) error {
	author, err := primitive.ObjectIDFromHex(camp.Author)
	if err != nil {
		return apperror.ValidationFailed("author", "invalid author id")
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := campgroundDoc{
		ID:          primitive.NewObjectID(),
		Title:       camp.Title,
		Location:    camp.Location,
		Price:       camp.Price,
		Description: camp.Description,
		Images:      toImageDocs(camp.Images),
		Geometry:    toGeometryDoc(camp.Geometry),
		Author:      author,
		Reviews:     []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting campground: %w", err)
	}

	camp.ID = doc.ID.Hex()
	camp.Reviews = []string{}
	if camp.Images == nil {
		camp.Images = []model.Image{}
	}
	camp.CreatedAt = now
	camp.UpdatedAt = now
	return nil
}

func (s *Store) GetCampground(ctx context.Context, id string) (*model.Campground, error) {
	oid, err := objectID("campground", id)
	if err != nil {
		return nil, err
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return nil, err
	}

	var doc campgroundDoc
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, "campground", id)
	}
	return doc.model(), nil
}

// ListCampgrounds returns every campground in insertion order.
func (s *Store) ListCampgrounds(ctx context.Context) ([]model.CampgroundSummary, error) {
	return s.findSummaries(ctx, bson.M{},
		options.Find().SetProjection(summaryProjection).SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
}

func (s *Store) RecentCampgroundsByAuthor(ctx context.Context, authorID string, limit int) ([]model.CampgroundSummary, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return []model.CampgroundSummary{}, nil
	}
	return s.findSummaries(ctx, bson.M{"author": author},
		options.Find().
			SetProjection(summaryProjection).
			SetSort(bson.D{{Key: "_id", Value: -1}}).
			SetLimit(int64(limit)),
	)
}

func (s *Store) CountCampgroundsByAuthor(ctx context.Context, authorID string) (int64, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return 0, nil
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"author": author})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting campgrounds of %s: %w", authorID, err)
	}
	return n, nil
}

func (s *Store) findSummaries(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.CampgroundSummary, error) {
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return nil, err
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing campgrounds: %w", err)
	}
	var docs []campgroundDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding campgrounds: %w", err)
	}

	out := make([]model.CampgroundSummary, len(docs))
	for i := range docs {
		out[i] = docs[i].model().Summary()
	}
	return out, nil
}

// UpdateCampground sets the editable fields and the image list.
func (s *Store) UpdateCampground(ctx context.Context, camp *model.Campground) error {
	oid, err := objectID("campground", camp.ID)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	camp.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"title":       camp.Title,
		"location":    camp.Location,
		"price":       camp.Price,
		"description": camp.Description,
		"images":      toImageDocs(camp.Images),
		"updatedAt":   camp.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("mongo: updating campground %s: %w", camp.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("campground", camp.ID)
	}
	return nil
}

// PullCampgroundImages removes every matching image with one $pull.
func (s *Store) PullCampgroundImages(ctx context.Context, id string, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	oid, err := objectID("campground", id)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	_, err = coll.UpdateByID(ctx, oid, bson.M{
		"$pull": bson.M{"images": bson.M{"filename": bson.M{"$in": filenames}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: pulling images from %s: %w", id, err)
	}
	return nil
}

// AppendCampgroundReview adds the review id to the end of the list.
// $addToSet keeps a repeated append from duplicating the reference.
func (s *Store) AppendCampgroundReview(ctx context.Context, campgroundID, reviewID string) error {
	oid, err := objectID("campground", campgroundID)
	if err != nil {
		return err
	}
	rid, err := objectID("review", reviewID)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	res, err := coll.UpdateByID(ctx, oid, bson.M{"$addToSet": bson.M{"reviews": rid}})
	if err != nil {
		return fmt.Errorf("mongo: appending review %s to %s: %w", reviewID, campgroundID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("campground", campgroundID)
	}
	return nil
}

// PullReviewFromCampgrounds pulls reviewID out of every campground that
// references it, in a single multi-document update.
func (s *Store) PullReviewFromCampgrounds(ctx context.Context, reviewID string) error {
	rid, err := primitive.ObjectIDFromHex(reviewID)
	if err != nil {
		// Nothing can reference an invalid id.
		return nil
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	_, err = coll.UpdateMany(ctx, bson.M{"reviews": rid}, bson.M{"$pull": bson.M{"reviews": rid}})
	if err != nil {
		return fmt.Errorf("mongo: pulling review %s: %w", reviewID, err)
	}
	return nil
}

// DeleteCampground removes the campground document only.
func (s *Store) DeleteCampground(ctx context.Context, id string) error {
	oid, err := objectID("campground", id)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, campgroundsCollection)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting campground %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("campground", id)
	}
	return nil
}
