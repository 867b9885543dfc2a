package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"rental-backend/internal/auth"
)

// Child tables first; RESTART IDENTITY resets the SERIAL sequences.
var tables = []string{
	"audit_logs",
	"payments",
	"bookings",
	"properties",
	"users",
}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Rental Database")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: this deletes every user, listing, booking and payment.")
	fmt.Println("A single admin account is recreated afterwards.")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	// Load environment variables
	godotenv.Load()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "rental_db"),
		getEnv("DB_SSLMODE", "disable"),
	)

	adminEmail := getEnv("ADMIN_EMAIL", "admin@rental.local")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if len(adminPassword) < 8 {
		log.Fatal("ADMIN_PASSWORD must be set (at least 8 characters)")
	}
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("Resetting database...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v", table, err)
		}
		fmt.Printf("  cleared %s\n", table)
	}

	// Signup never grants the admin role, so the first admin comes from here
	_, err = tx.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, 'admin', TRUE)`,
		"Administrator", adminEmail, hash,
	)
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	fmt.Println("  created admin user")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}

	fmt.Println()
	fmt.Println("Database reset successful.")
	fmt.Printf("Admin login: %s\n", adminEmail)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
