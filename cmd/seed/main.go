package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/tailorbook/api/internal/config"
	"github.com/tailorbook/api/internal/database"
	"github.com/tailorbook/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	password := flag.String("password", "", "Admin password")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: load .env: %v", err)
	}
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	queries := database.New(pool)

	existing, err := queries.GetUserByUsername(ctx, enum.AdminUsername)
	if err == nil {
		log.Printf("Admin user already exists (ID: %d), skipping", existing.ID)
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Fatalf("Failed to check admin user: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	admin, err := queries.CreateUser(ctx, database.CreateUserParams{
		Username:     enum.AdminUsername,
		PasswordHash: string(hashed),
	})
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin ID: %d", admin.ID)
}
