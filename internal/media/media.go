// Package media stores uploaded images and hands back a durable URL plus an
// opaque deletion handle.
//
// Two stores exist: LocalStore writes processed JPEGs under a directory the
// server exposes at /media/, and CloudinaryStore forwards the upload to
// Cloudinary. Both name objects "<folder>/<id>" and use that as the handle.
package media

import (
	"context"
	"errors"
	"io"

	"github.com/sakif/journeyhub/internal/model"
)

// Folders objects are filed under.
const (
	FolderCampgrounds = "JourneyHub"
	FolderAvatars     = "campground_avatars"
)

// AvatarSize is the edge length avatars are fill-cropped to.
const AvatarSize = 400

// ErrInvalidImage means the upload is not a decodable image.
var ErrInvalidImage = errors.New("media: invalid image")

// UploadOptions controls where and how an upload is stored.
type UploadOptions struct {
	Folder string
	// Square, when positive, fill-crops the image to Square×Square around
	// its centre.
	Square int
}

// Store is an image store.
type Store interface {
	// Upload stores the image read from r. The returned Image carries the
	// public URL and, in Filename, the handle Destroy takes.
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (model.Image, error)
	// Destroy deletes the object named by filename.
	Destroy(ctx context.Context, filename string) error
}

// CampgroundImage returns the options for a campground photo.
func CampgroundImage() UploadOptions {
	return UploadOptions{Folder: FolderCampgrounds}
}

// Avatar returns the options for a profile picture.
func Avatar() UploadOptions {
	return UploadOptions{Folder: FolderAvatars, Square: AvatarSize}
}
