// Command seed populates the database with test data for local development.
package main

import (
	"flag"
	"log"
	"math/rand"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 50, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *shouldClean {
		if err := clean(db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := seed(db, *numUsers, *numPosts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All seeded users have the password: password123")
}

func clean(db *gorm.DB) error {
	for _, table := range []string{"comments", "post_images", "posts", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func seed(db *gorm.DB, numUsers, numPosts int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:     "Admin",
		Email:    "admin@inkwell.local",
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	users := []*models.User{admin}
	for i := 0; i < numUsers; i++ {
		user := &models.User{
			Name:     gofakeit.Name(),
			Email:    gofakeit.Email(),
			Password: string(hash),
			Role:     models.RoleUser,
		}
		if err := db.Create(user).Error; err != nil {
			return err
		}
		users = append(users, user)
	}
	log.Printf("Created %d users (1 admin)", len(users))

	for i := 0; i < numPosts; i++ {
		title := gofakeit.Sentence(rand.Intn(5) + 3)
		post := &models.Post{
			Title:   title,
			Slug:    validation.Slugify(title),
			Content: gofakeit.Paragraph(2, 4, 12, "\n\n"),
			UserID:  admin.ID,
		}
		if err := db.Create(post).Error; err != nil {
			return err
		}

		for j := rand.Intn(5); j > 0; j-- {
			commenter := users[rand.Intn(len(users))]
			comment := &models.Comment{
				Text:   gofakeit.Sentence(rand.Intn(10) + 3),
				UserID: commenter.ID,
				PostID: post.ID,
			}
			if err := db.Create(comment).Error; err != nil {
				return err
			}
		}
	}
	log.Printf("Created %d posts with comments", numPosts)

	return nil
}
