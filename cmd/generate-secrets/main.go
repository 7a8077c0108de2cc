package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-core/internal/utils"
	"github.com/smarttransit/booking-core/pkg/jwt"
	"github.com/spf13/pflag"
)

func main() {
	var (
		devToken bool
		memberID string
		phone    string
		admin    bool
		expiry   time.Duration
	)
	pflag.BoolVar(&devToken, "dev-token", false, "also mint an access token signed with the new secret")
	pflag.StringVar(&memberID, "member-id", "", "member ID for the dev token (random if empty)")
	pflag.StringVar(&phone, "phone", "0123456789", "phone number for the dev token")
	pflag.BoolVar(&admin, "admin", false, "grant the admin role to the dev token")
	pflag.DurationVar(&expiry, "expiry", 24*time.Hour, "dev token lifetime")
	pflag.Parse()

	fmt.Println("===========================================")
	fmt.Println("JWT Secret Generator for SmartTransit Booking")
	fmt.Println("===========================================")
	fmt.Println()

	secret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("✅ Secret generated successfully!")
	fmt.Println()
	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Println()

	if devToken {
		id := uuid.New()
		if memberID != "" {
			id, err = uuid.Parse(memberID)
			if err != nil {
				log.Fatalf("Invalid --member-id: %v", err)
			}
		}

		roles := []string{jwt.RoleMember}
		if admin {
			roles = append(roles, jwt.RoleAdmin)
		}

		token, err := jwt.NewService(secret, expiry).GenerateAccessToken(id, phone, roles)
		if err != nil {
			log.Fatalf("Failed to mint dev token: %v", err)
		}
		fmt.Printf("Dev token for member %s (roles %v, expires in %s):\n\n%s\n\n", id, roles, expiry, token)
	}

	fmt.Println("⚠️  IMPORTANT: Keep this secret safe and never commit it to version control!")
	fmt.Println("===========================================")
}
