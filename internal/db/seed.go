package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 20 active users (10 male, 10 female) plus a waitlist trio
//     sharing one admission timestamp (positions must still be stable).
//  3. Generates ~200 likes with ~70% density; every 3rd pair is made
//     mutual and promoted to a match with unread markers.
//  4. Opens a few pending message requests.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{
		"seen_requests", "unread_matches", "subscriptions",
		"message_requests", "matches", "likes", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Active users (10 male, 10 female) ---
	now := time.Now().UTC()
	for i := 1; i <= 20; i++ {
		gender, lookingFor := "male", "female"
		if i > 10 {
			gender, lookingFor = "female", "male"
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       gender,
			LookingFor:   lookingFor,
			Status:       StatusActive,
			Role:         RoleMember,
			CreatedAt:    now.Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 active users.")

	// --- Waitlist trio with identical admission timestamps ---
	admitted := now.Add(-2 * time.Hour).Truncate(time.Second)
	for i := 21; i <= 23; i++ {
		user := User{
			Username:     fmt.Sprintf("waitlisted%d", i),
			Email:        fmt.Sprintf("waitlisted%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       "male",
			LookingFor:   "female",
			Status:       StatusWaitlist,
			Role:         RoleMember,
			CreatedAt:    admitted,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed waitlisted user: %w", err)
		}
	}
	log.Println("Seeded 3 waitlisted users.")

	// --- Likes (~200), every 3rd pair mutual and matched ---
	counter := 0
	for likerID := uint64(1); likerID <= 20; likerID++ {
		for j := 0; j < 12; j++ {
			likedID := uint64(r.Intn(20) + 1)
			if likerID == likedID {
				continue
			}
			// keep orientation consistent with the seeded profiles
			if (likerID <= 10) == (likedID <= 10) {
				continue
			}

			if r.Intn(100) >= 70 && counter%3 != 0 {
				counter++
				continue
			}

			like := Like{LikerID: likerID, LikedID: likedID}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			if counter%3 == 0 {
				recip := Like{LikerID: likedID, LikedID: likerID}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed reciprocal like: %w", err)
				}

				a, b := likerID, likedID
				if a > b {
					a, b = b, a
				}
				match := Match{UserAID: a, UserBID: b}
				res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
				if res.Error != nil {
					return fmt.Errorf("failed to seed match: %w", res.Error)
				}
				if res.RowsAffected > 0 {
					for _, pair := range [2][2]uint64{{a, b}, {b, a}} {
						marker := UnreadMatch{UserID: pair[0], OtherID: pair[1]}
						db.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
					}
				}
			}
			counter++
		}
	}
	log.Println("Seeded likes and matches.")

	// --- A few pending message requests (unmatched pairs only) ---
	seeded := 0
	for senderID := uint64(1); senderID <= 10 && seeded < 5; senderID++ {
		receiverID := senderID + 10
		var matched int64
		db.Model(&Match{}).
			Where("user_a_id = ? AND user_b_id = ?", senderID, receiverID).
			Count(&matched)
		if matched > 0 {
			continue
		}

		key := fmt.Sprintf("%d-%d", senderID, receiverID)
		req := MessageRequest{
			ID:         uuid.NewString(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     RequestPending,
			PendingKey: &key,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&req).Error; err != nil {
			return fmt.Errorf("failed to seed request: %w", err)
		}
		seeded++
	}
	log.Printf("Seeded %d pending requests.", seeded)

	return nil
}
