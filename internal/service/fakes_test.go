package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/events"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. It copies on the way in and
// out so tests cannot mutate stored state by accident, and it records the
// name of every write so tests can assert ordering.

type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[string]model.User
	camps   map[string]model.Campground
	reviews map[string]model.Review
	calls   []string

	// failOn makes the named method return this error.
	failOn map[string]error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]model.User),
		camps:   make(map[string]model.Campground),
		reviews: make(map[string]model.Review),
		failOn:  make(map[string]error),
	}
}

func (f *fakeStore) record(name string) error {
	f.calls = append(f.calls, name)
	return f.failOn[name]
}

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateUser"); err != nil {
		return err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperror.Conflict("Username or email already in use")
		}
	}
	u.ID = f.newID("user")
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn["GetUserByID"]; err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) UpdateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateUser"); err != nil {
		return err
	}
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) CreateCampground(_ context.Context, c *model.Campground) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCampground"); err != nil {
		return err
	}
	c.ID = f.newID("camp")
	stored := *c
	stored.Images = slices.Clone(c.Images)
	stored.Reviews = slices.Clone(c.Reviews)
	f.camps[c.ID] = stored
	return nil
}

func (f *fakeStore) GetCampground(_ context.Context, id string) (*model.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.camps[id]
	if !ok {
		return nil, apperror.NotFound("campground", id)
	}
	c.Images = slices.Clone(c.Images)
	c.Reviews = slices.Clone(c.Reviews)
	return &c, nil
}

func (f *fakeStore) ListCampgrounds(_ context.Context) ([]model.CampgroundSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCampgrounds"); err != nil {
		return nil, err
	}
	out := make([]model.CampgroundSummary, 0, len(f.camps))
	for _, c := range f.camps {
		out = append(out, c.Summary())
	}
	slices.SortFunc(out, func(a, b model.CampgroundSummary) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) UpdateCampground(_ context.Context, c *model.Campground) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateCampground"); err != nil {
		return err
	}
	stored, ok := f.camps[c.ID]
	if !ok {
		return apperror.NotFound("campground", c.ID)
	}
	stored.Title, stored.Location, stored.Price, stored.Description = c.Title, c.Location, c.Price, c.Description
	stored.Images = slices.Clone(c.Images)
	f.camps[c.ID] = stored
	return nil
}

func (f *fakeStore) PullCampgroundImages(_ context.Context, id string, filenames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PullCampgroundImages"); err != nil {
		return err
	}
	c, ok := f.camps[id]
	if !ok {
		return apperror.NotFound("campground", id)
	}
	c.Images = slices.DeleteFunc(slices.Clone(c.Images), func(img model.Image) bool {
		return slices.Contains(filenames, img.Filename)
	})
	f.camps[id] = c
	return nil
}

func (f *fakeStore) AppendCampgroundReview(_ context.Context, campgroundID, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AppendCampgroundReview"); err != nil {
		return err
	}
	c, ok := f.camps[campgroundID]
	if !ok {
		return apperror.NotFound("campground", campgroundID)
	}
	if !slices.Contains(c.Reviews, reviewID) {
		c.Reviews = append(slices.Clone(c.Reviews), reviewID)
	}
	f.camps[campgroundID] = c
	return nil
}

func (f *fakeStore) PullReviewFromCampgrounds(_ context.Context, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PullReviewFromCampgrounds"); err != nil {
		return err
	}
	for id, c := range f.camps {
		c.Reviews = slices.DeleteFunc(slices.Clone(c.Reviews), func(r string) bool { return r == reviewID })
		f.camps[id] = c
	}
	return nil
}

func (f *fakeStore) DeleteCampground(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteCampground"); err != nil {
		return err
	}
	if _, ok := f.camps[id]; !ok {
		return apperror.NotFound("campground", id)
	}
	delete(f.camps, id)
	return nil
}

func (f *fakeStore) CountCampgroundsByAuthor(_ context.Context, authorID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.camps {
		if c.Author == authorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RecentCampgroundsByAuthor(_ context.Context, authorID string, limit int) ([]model.CampgroundSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CampgroundSummary
	for _, c := range f.camps {
		if c.Author == authorID {
			out = append(out, c.Summary())
		}
	}
	slices.SortFunc(out, func(a, b model.CampgroundSummary) int { return compareIDs(b.ID, a.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CreateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateReview"); err != nil {
		return err
	}
	r.ID = f.newID("review")
	r.CreatedAt = time.Now()
	f.reviews[r.ID] = *r
	return nil
}

func (f *fakeStore) GetReview(_ context.Context, id string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	return &r, nil
}

func (f *fakeStore) GetReviewsByIDs(_ context.Context, ids []string) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.reviews[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteReview(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteReview"); err != nil {
		return err
	}
	if _, ok := f.reviews[id]; !ok {
		return apperror.NotFound("review", id)
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeStore) CountReviewsByAuthor(_ context.Context, authorID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.reviews {
		if r.Author == authorID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RecentReviewsByAuthor(_ context.Context, authorID string, limit int) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Review
	for _, r := range f.reviews {
		if r.Author == authorID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Review) int { return compareIDs(b.ID, a.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// compareIDs orders "prefix-N" ids numerically, like creation order.
func compareIDs(a, b string) int {
	return trailingNumber(a) - trailingNumber(b)
}

func trailingNumber(id string) int {
	n, _ := strconv.Atoi(id[strings.LastIndex(id, "-")+1:])
	return n
}

func (f *fakeStore) callsMatching(names ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if slices.Contains(names, c) {
			out = append(out, c)
		}
	}
	return out
}

// =========================================================================
// FAKE COLLABORATORS
// =========================================================================

type fakeGeocoder struct {
	point *model.Geometry
	err   error
	calls int
}

func (g *fakeGeocoder) Forward(_ context.Context, _ string) (*model.Geometry, error) {
	g.calls++
	return g.point, g.err
}

type fakeMedia struct {
	mu         sync.Mutex
	uploaded   []model.Image
	destroyed  []string
	uploadErr  error
	destroyErr error
	n          int
}

var _ media.Store = (*fakeMedia)(nil)

func (m *fakeMedia) Upload(_ context.Context, r io.Reader, opts media.UploadOptions) (model.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return model.Image{}, m.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return model.Image{}, err
	}
	m.n++
	handle := fmt.Sprintf("%s/img-%d", opts.Folder, m.n)
	img := model.Image{URL: "https://cdn.test/" + handle + ".jpg", Filename: handle}
	m.uploaded = append(m.uploaded, img)
	return img, nil
}

func (m *fakeMedia) Destroy(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, filename)
	return m.destroyErr
}

type fakeCache struct {
	list        []model.CampgroundSummary
	ok          bool
	getErr      error
	gen         int64
	invalidated int
	sets        int
	refused     int

	// beforeSet runs once at the start of the next SetList, standing in for
	// a write that lands between the store read and the cache write.
	beforeSet func()
}

func (c *fakeCache) GetList(context.Context) ([]model.CampgroundSummary, bool, error) {
	return c.list, c.ok, c.getErr
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	return c.gen, nil
}

func (c *fakeCache) SetList(_ context.Context, list []model.CampgroundSummary, gen int64) (bool, error) {
	if f := c.beforeSet; f != nil {
		c.beforeSet = nil
		f()
	}
	if gen != c.gen {
		c.refused++
		return false, nil
	}
	c.list, c.ok = list, true
	c.sets++
	return true, nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.list, c.ok = nil, false
	c.gen++
	c.invalidated++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// =========================================================================
// HELPERS
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// env bundles every service over one fake store.
type env struct {
	store     *fakeStore
	geocoder  *fakeGeocoder
	media     *fakeMedia
	cache     *fakeCache
	publisher *fakePublisher

	auth    *AuthService
	users   *UserService
	camps   *CampgroundService
	reviews *ReviewService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// Cost 4 is bcrypt's minimum and keeps the tests fast.
	passwords := auth.NewPasswordService(4)

	e := &env{
		store:     newFakeStore(),
		geocoder:  &fakeGeocoder{point: model.NewPoint(-119.54, 37.74)},
		media:     &fakeMedia{},
		cache:     &fakeCache{},
		publisher: &fakePublisher{},
	}
	logger := quietLogger()
	opts := []Option{WithCache(e.cache), WithEvents(e.publisher)}

	e.auth = NewAuthService(e.store, tokens, passwords, logger)
	e.users = NewUserService(e.store, e.store, e.store, passwords, e.media, logger)
	e.camps = NewCampgroundService(e.store, e.store, e.geocoder, e.media, logger, opts...)
	e.reviews = NewReviewService(e.store, e.store, e.store, logger, opts...)
	return e
}

func (e *env) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return u
}

func (e *env) pineRidge(t *testing.T, authorID string, images ...model.Image) *model.Campground {
	t.Helper()
	c, err := e.camps.Create(context.Background(), authorID, CreateCampgroundInput{
		Title:       "Pine Ridge",
		Location:    "Yosemite, CA",
		Price:       20,
		Description: "Tall trees.",
		Images:      images,
	})
	if err != nil {
		t.Fatalf("Create campground error = %v", err)
	}
	return c
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func imageBody() io.Reader {
	return bytes.NewReader([]byte("image bytes"))
}
