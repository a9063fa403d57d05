// Command seed fills the configured store with demo users, campgrounds and
// reviews. Every seeded user has the password "password".
//
//	go run ./cmd/seed -users 5 -camps 30 -reviews 3
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/config"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
	"github.com/sakif/journeyhub/internal/server"
)

const seedPassword = "password"

var descriptors = []string{
	"Forest", "Ancient", "Petrified", "Roaring", "Cascade", "Tumbling",
	"Silent", "Redwood", "Bullfrog", "Maple", "Misty", "Elk", "Grizzly",
	"Ocean", "Sea", "Sky", "Dusty", "Diamond",
}

var places = []string{
	"Flats", "Village", "Canyon", "Pond", "Group Camp", "Horse Camp",
	"Ghost Town", "Camp", "Dispersed Camp", "Backcountry", "River",
	"Creek", "Creekside", "Bay", "Spring", "Bayshore", "Sands",
	"Mule Camp", "Hunting Camp", "Cliffs", "Hollow",
}

func main() {
	users := flag.Int("users", 5, "number of users to create")
	camps := flag.Int("camps", 30, "number of campgrounds to create")
	reviews := flag.Int("reviews", 3, "reviews per campground")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := server.OpenStore(cfg)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s := &seeder{store: store, passwords: auth.NewPasswordService(cfg.BcryptCost), logger: logger}
	if err := s.run(ctx, *users, *camps, *reviews); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type seeder struct {
	store     repository.Store
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func (s *seeder) run(ctx context.Context, userCount, campCount, reviewsPerCamp int) error {
	if userCount < 1 {
		return fmt.Errorf("need at least one user")
	}
	gofakeit.Seed(time.Now().UnixNano())

	hash, err := s.passwords.Hash(seedPassword)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	userIDs := make([]string, 0, userCount)
	for i := 0; i < userCount; i++ {
		u := &model.User{
			Username:     fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), gofakeit.Number(100, 999)),
			Email:        strings.ToLower(gofakeit.Email()),
			PasswordHash: hash,
		}
		if err := s.store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("creating user %s: %w", u.Username, err)
		}
		userIDs = append(userIDs, u.ID)
		s.logger.Info("user created", slog.String("username", u.Username))
	}

	for i := 0; i < campCount; i++ {
		camp := fakeCampground(userIDs[gofakeit.Number(0, len(userIDs)-1)])
		if err := s.store.CreateCampground(ctx, camp); err != nil {
			return fmt.Errorf("creating campground %q: %w", camp.Title, err)
		}

		for j := 0; j < reviewsPerCamp; j++ {
			review := &model.Review{
				Body:   gofakeit.Sentence(gofakeit.Number(6, 18)),
				Rating: gofakeit.Number(1, 5),
				Author: userIDs[gofakeit.Number(0, len(userIDs)-1)],
			}
			if err := s.store.CreateReview(ctx, review); err != nil {
				return fmt.Errorf("creating review: %w", err)
			}
			if err := s.store.AppendCampgroundReview(ctx, camp.ID, review.ID); err != nil {
				return fmt.Errorf("attaching review to %s: %w", camp.ID, err)
			}
		}
	}

	s.logger.Info("seed complete",
		slog.Int("users", userCount),
		slog.Int("campgrounds", campCount),
		slog.Int("reviews", campCount*reviewsPerCamp),
		slog.String("password", seedPassword),
	)
	return nil
}

func fakeCampground(authorID string) *model.Campground {
	city := gofakeit.City()
	state := gofakeit.StateAbr()
	key := gofakeit.LetterN(10)

	return &model.Campground{
		Title:       gofakeit.RandomString(descriptors) + " " + gofakeit.RandomString(places),
		Location:    city + ", " + state,
		Price:       math.Round(gofakeit.Price(5, 60)*100) / 100,
		Description: gofakeit.Paragraph(1, 3, 12, " "),
		Images: []model.Image{{
			URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/600", key),
			Filename: "seed/" + key,
		}},
		Geometry: model.NewPoint(gofakeit.Longitude(), gofakeit.Latitude()),
		Author:   authorID,
		Reviews:  []string{},
	}
}
