package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/journeyhub/internal/model"
)

type imageDoc struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

type geometryDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"hash"`
	Avatar       *imageDoc          `bson:"avatar,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

type campgroundDoc struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Title       string               `bson:"title"`
	Location    string               `bson:"location"`
	Price       float64              `bson:"price"`
	Description string               `bson:"description"`
	Images      []imageDoc           `bson:"images"`
	Geometry    *geometryDoc         `bson:"geometry,omitempty"`
	Author      primitive.ObjectID   `bson:"author"`
	Reviews     []primitive.ObjectID `bson:"reviews"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type reviewDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Body      string             `bson:"body"`
	Rating    int                `bson:"rating"`
	Author    primitive.ObjectID `bson:"author"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func toImageDoc(img *model.Image) *imageDoc {
	if img == nil {
		return nil
	}
	return &imageDoc{URL: img.URL, Filename: img.Filename}
}

func toImageDocs(images []model.Image) []imageDoc {
	out := make([]imageDoc, len(images))
	for i, img := range images {
		out[i] = imageDoc{URL: img.URL, Filename: img.Filename}
	}
	return out
}

func fromImageDocs(docs []imageDoc) []model.Image {
	out := make([]model.Image, len(docs))
	for i, d := range docs {
		out[i] = model.Image{URL: d.URL, Filename: d.Filename}
	}
	return out
}

func toGeometryDoc(g *model.Geometry) *geometryDoc {
	if g == nil {
		return nil
	}
	return &geometryDoc{Type: g.Type, Coordinates: []float64{g.Coordinates[0], g.Coordinates[1]}}
}

func fromGeometryDoc(d *geometryDoc) *model.Geometry {
	if d == nil || len(d.Coordinates) != 2 {
		return nil
	}
	return model.NewPoint(d.Coordinates[0], d.Coordinates[1])
}

func (d *userDoc) model() *model.User {
	u := &model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Avatar != nil && d.Avatar.URL != "" {
		u.Avatar = &model.Image{URL: d.Avatar.URL, Filename: d.Avatar.Filename}
	}
	return u
}

func (d *campgroundDoc) model() *model.Campground {
	reviews := make([]string, len(d.Reviews))
	for i, r := range d.Reviews {
		reviews[i] = r.Hex()
	}
	return &model.Campground{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Location:    d.Location,
		Price:       d.Price,
		Description: d.Description,
		Images:      fromImageDocs(d.Images),
		Geometry:    fromGeometryDoc(d.Geometry),
		Author:      d.Author.Hex(),
		Reviews:     reviews,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d *reviewDoc) model() model.Review {
	return model.Review{
		ID:        d.ID.Hex(),
		Body:      d.Body,
		Rating:    d.Rating,
		Author:    d.Author.Hex(),
		CreatedAt: d.CreatedAt,
	}
}
