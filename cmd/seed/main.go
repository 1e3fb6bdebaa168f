// Command seed populates the database with demo data.
package main

import (
	"flag"
	"log"

	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/database"
	"github.com/gustavohdab/rettiwt-backend/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "number of users to create")
	numTweets := flag.Int("tweets", 200, "number of tweets to create")
	shouldClean := flag.Bool("clean", true, "clean database before seeding")
	maxDays := flag.Int("max-days", 30, "spread tweet timestamps over this many days")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "store plaintext passwords (faster, accounts cannot log in)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:   *numUsers,
		NumTweets:  *numTweets,
		Clean:      *shouldClean,
		MaxDays:    *maxDays,
		SkipBcrypt: *skipBcrypt,
	}); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	if !*skipBcrypt {
		log.Println("all seeded users have the password: password123")
	}
}
