// Command seedphones populates the phone_numbers table with randomly
// generated chargeable numbers for development and testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/spf13/viper"

	"github.com/chargeseller/backend/internal/database"
)

func main() {
	count := flag.Int("count", 100, "number of phone numbers to create")
	flag.Parse()

	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.ReadInConfig()

	db := database.InitDatabase()
	defer db.Close()

	created := 0
	for i := 0; i < *count; i++ {
		// Local mobile format: 09 followed by nine random digits.
		number := fmt.Sprintf("09%09d", rand.Int63n(1_000_000_000))

		// Collisions are skipped rather than retried; the next run fills
		// any shortfall.
		result, err := db.Exec(`
			INSERT INTO phone_numbers (phone_number, is_active, created_at)
			VALUES ($1, TRUE, NOW())
			ON CONFLICT (phone_number) DO NOTHING`, number)
		if err != nil {
			log.Fatalf("Failed to insert phone number %s: %v", number, err)
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			created++
		}
	}

	log.Printf("Created %d phone numbers (%d requested)", created, *count)
}
