// Command create-user adds a login with a bcrypt-hashed password and an empty
// onboarding profile. Values not given as flags are prompted for.
//
// Usage: go run ./cmd/create-user [-username u] [-email e]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	username := flag.String("username", "", "login name")
	email := flag.String("email", "", "email address")
	flag.Parse()

	_ = godotenv.Load()
	if err := run(context.Background(), *username, *email); err != nil {
		fmt.Fprintf(os.Stderr, "create-user: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, username, email string) error {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		username = prompt(reader, "Username: ")
	}
	if email == "" {
		email = prompt(reader, "Email: ")
	}
	password := prompt(reader, "Password: ")
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	authToken := uuid.New().String()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID int
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, email, password, auth_token)
		 VALUES (@username, @email, @password, @token) RETURNING id`,
		pgx.NamedArgs{"username": username, "email": email, "password": string(hash), "token": authToken},
	).Scan(&userID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES (@userID)`,
		pgx.NamedArgs{"userID": userID}); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	fmt.Printf("\nUser created.\n")
	fmt.Printf("  ID:         %d\n", userID)
	fmt.Printf("  Username:   %s\n", username)
	fmt.Printf("  Auth Token: %s\n", authToken)
	return nil
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
