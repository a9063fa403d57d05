package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/journeyhub/internal/model"
)

// LocalStore keeps images on local disk as <dir>/<folder>/<id>.jpg.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the directory if needed. baseURL is the public
// prefix the files are served under, e.g. "http://localhost:8080/media".
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("media: resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("media: creating %s: %w", abs, err)
	}
	return &LocalStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload processes the image and writes it under opts.Folder.
func (s *LocalStore) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (model.Image, error) {
	folder := opts.Folder
	if folder == "" {
		folder = FolderCampgrounds
	}

	data, err := process(r, opts.Square)
	if err != nil {
		return model.Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Image{}, err
	}

	handle := path.Join(folder, xid.New().String())
	abs, err := s.resolve(handle)
	if err != nil {
		return model.Image{}, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return model.Image{}, fmt.Errorf("media: creating folder: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o640); err != nil {
		return model.Image{}, fmt.Errorf("media: writing %s: %w", handle, err)
	}

	return model.Image{URL: s.baseURL + "/" + handle + ".jpg", Filename: handle}, nil
}

// Destroy removes the file behind handle. A handle that resolves outside
// the store directory is refused.
func (s *LocalStore) Destroy(_ context.Context, handle string) error {
	abs, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("media: %s not found: %w", handle, err)
		}
		return fmt.Errorf("media: removing %s: %w", handle, err)
	}
	return nil
}

// Handler serves the stored files. Mount it with http.StripPrefix.
// Directories answer 404, so folder contents cannot be listed.
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(filesOnly{http.Dir(s.dir)})
}

// filesOnly hides every directory of the wrapped file system.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// resolve maps a handle to its absolute path inside the store directory.
func (s *LocalStore) resolve(handle string) (string, error) {
	if handle == "" {
		return "", fmt.Errorf("media: empty handle")
	}
	abs := filepath.Join(s.dir, filepath.FromSlash(handle)+".jpg")
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("media: handle %q escapes the store", handle)
	}
	return abs, nil
}
