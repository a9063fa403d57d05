package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/sakif/journeyhub/internal/model"
)

// CloudinaryStore uploads to Cloudinary. Resizing happens on Cloudinary's
// side through an incoming transformation.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

var _ Store = (*CloudinaryStore)(nil)

// NewCloudinaryStore configures the client from a
// cloudinary://<key>:<secret>@<cloud> URL.
func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("media: configuring cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Upload stores the image under opts.Folder, defaulting to the campground
// folder, and returns its secure URL with the public id as Filename.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (model.Image, error) {
	folder := opts.Folder
	if folder == "" {
		folder = FolderCampgrounds
	}

	resp, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         folder,
		ResourceType:   "image",
		Transformation: transformation(opts),
	})
	if err != nil {
		return model.Image{}, fmt.Errorf("media: cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return model.Image{}, fmt.Errorf("media: cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" || resp.PublicID == "" {
		return model.Image{}, errors.New("media: cloudinary upload returned no asset")
	}

	return model.Image{URL: resp.SecureURL, Filename: resp.PublicID}, nil
}

// Destroy deletes the asset whose public id is handle.
func (s *CloudinaryStore) Destroy(ctx context.Context, handle string) error {
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: handle})
	if err != nil {
		return fmt.Errorf("media: cloudinary destroy %s: %w", handle, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("media: cloudinary destroy %s: %s", handle, resp.Error.Message)
	}
	if resp.Result != "ok" {
		return fmt.Errorf("media: cloudinary destroy %s: %s", handle, resp.Result)
	}
	return nil
}

// transformation builds the incoming transformation for opts. Avatars are
// face-centred square crops; everything else is bounded to MaxEdge.
func transformation(opts UploadOptions) string {
	if opts.Square > 0 {
		return fmt.Sprintf("c_fill,g_face,h_%d,w_%d/q_auto", opts.Square, opts.Square)
	}
	return fmt.Sprintf("c_limit,h_%d,w_%d/q_auto", MaxEdge, MaxEdge)
}
