package model

import "time"

// Image is a media-store object referenced by a campground or a user avatar.
// Filename is the store's opaque deletion handle (a Cloudinary public id or a
// local-store path), not the name of the uploaded file.
type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Geometry is a GeoJSON point. Coordinates are ordered [lng, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point from a longitude/latitude pair.
func NewPoint(lng, lat float64) *Geometry {
	return &Geometry{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Campground is a user-created listing.
//
// Author is set once at creation and never reassigned. Reviews holds review
// ids in the order they were attached.
type Campground struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Images      []Image   `json:"images"`
	Geometry    *Geometry `json:"geometry,omitempty"`
	Author      string    `json:"author"`
	Reviews     []string  `json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CampgroundSummary is the list projection. It deliberately omits the
// description and the review list.
type CampgroundSummary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Price    float64   `json:"price"`
	Images   []Image   `json:"images"`
	Geometry *Geometry `json:"geometry,omitempty"`
}

// Summary projects the campground onto its list shape.
func (c *Campground) Summary() CampgroundSummary {
	return CampgroundSummary{
		ID:       c.ID,
		Title:    c.Title,
		Location: c.Location,
		Price:    c.Price,
		Images:   c.Images,
		Geometry: c.Geometry,
	}
}
