// cmd/devtoken prints a signed access token for local testing.
// Usage: JWT_SECRET=... devtoken [username] [role] [outlet_id...]
package main

import (
	"fmt"
	"os"
	"time"

	"restopos/internal/config"
	"restopos/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is empty")
		os.Exit(1)
	}

	username, role := "manager@example.com", middleware.RoleManager
	if len(os.Args) > 1 {
		username = os.Args[1]
	}
	if len(os.Args) > 2 {
		role = os.Args[2]
	}
	var outlets []string
	if len(os.Args) > 3 {
		outlets = os.Args[3:]
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID:    uuid.NewString(),
		Username:  username,
		Role:      role,
		OutletIDs: outlets,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(signed)
}
