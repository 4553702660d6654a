// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the shared password for every seeded account.
const Password = "password123"

// DemoEmail is the address of the first seeded account, advertised on the
// demo page.
const DemoEmail = "demo@inkwell.local"

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seed populates the database with demo users and posts.
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())

	log.Printf("Seeding database with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	if err := createPosts(db, users, opts.NumPosts); err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", opts.NumPosts)

	log.Printf("Done. Log in as %s / %s", DemoEmail, Password)
	return nil
}

func clearData(db *gorm.DB) error {
	// Posts reference users, so they go first.
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
		return err
	}
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error
}

func createUsers(db *gorm.DB, n int) ([]*models.User, error) {
	// One shared hash; per-user bcrypt at full cost would make large seeds crawl.
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Username:  seedUsername(i),
			Email:     seedEmail(i),
			Password:  string(hash),
			ImageFile: models.DefaultImageFile,
		}
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func seedUsername(i int) string {
	if i == 0 {
		return "demo"
	}
	// Usernames are capped at 20 characters; a numeric suffix keeps them unique.
	name := strings.ToLower(gofakeit.Username())
	if len(name) > 15 {
		name = name[:15]
	}
	return fmt.Sprintf("%s%d", name, i)
}

func seedEmail(i int) string {
	if i == 0 {
		return DemoEmail
	}
	return fmt.Sprintf("user%d@%s", i, gofakeit.DomainName())
}

func createPosts(db *gorm.DB, users []*models.User, n int) error {
	if len(users) == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		author := users[rand.Intn(len(users))]
		post := &models.Post{
			Title:   strings.TrimSuffix(gofakeit.Sentence(5), "."),
			Content: gofakeit.Paragraph(2, 4, 8, "\n\n"),
			UserID:  author.ID,
			// Spread publication dates over the last 90 days so the feed
			// ordering looks lived-in.
			CreatedAt: time.Now().Add(-time.Duration(rand.Intn(90*24*60)) * time.Minute),
		}
		if err := db.Create(post).Error; err != nil {
			return err
		}
	}
	return nil
}
