// Command admin manages admin accounts from the command line.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/database"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <user_id>      - Promote user to admin")
		fmt.Println("  go run ./cmd/admin demote <user_id>       - Demote user from admin")
		fmt.Println("  go run ./cmd/admin deactivate <user_id>   - Deactivate an account")
		fmt.Println("  go run ./cmd/admin activate <user_id>     - Reactivate an account")
		fmt.Println("  go run ./cmd/admin list-admins            - List all admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "promote":
		setRole(db, arg(command), models.RoleAdmin)
	case "demote":
		setRole(db, arg(command), models.RoleUser)
	case "deactivate":
		setActive(db, arg(command), false)
	case "activate":
		setActive(db, arg(command), true)
	case "list-admins":
		listAdmins(db)
	default:
		fmt.Printf("unknown command: %s\n", command)
		os.Exit(1)
	}
}

func arg(command string) string {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin %s <user_id>\n", command)
		os.Exit(1)
	}
	return os.Args[2]
}

func findUser(db *gorm.DB, userID string) *models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("user with ID %s not found\n", userID)
		} else {
			log.Fatalf("database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func setRole(db *gorm.DB, userID string, role string) {
	user := findUser(db, userID)
	if user.Role == role {
		fmt.Printf("user %s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return
	}

	if err := db.Model(user).Update("role", role).Error; err != nil {
		log.Fatalf("failed to update role: %v", err)
	}
	fmt.Printf("user %s (ID: %d) now has role %s\n", user.Username, user.ID, role)
}

func setActive(db *gorm.DB, userID string, active bool) {
	user := findUser(db, userID)
	if user.IsActive == active {
		fmt.Printf("user %s (ID: %d) is already in that state\n", user.Username, user.ID)
		return
	}

	if err := db.Model(user).Update("is_active", active).Error; err != nil {
		log.Fatalf("failed to update account state: %v", err)
	}
	if active {
		fmt.Printf("user %s (ID: %d) reactivated\n", user.Username, user.ID)
	} else {
		fmt.Printf("user %s (ID: %d) deactivated\n", user.Username, user.ID)
	}
}

func listAdmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		log.Fatalf("failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("no admins found")
		return
	}

	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s | Active: %v\n",
			admin.ID, admin.Username, admin.Email, admin.IsActive)
	}
}
