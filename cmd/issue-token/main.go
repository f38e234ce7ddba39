// Command issue-token mints an access token for local testing. It signs
// with JWT_ACCESS_SECRET from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/example/ride-booking/internal/auth"
	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/models"
)

func main() {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	flag.StringVar(&userID, "user", "", "user id to put in the token")
	flag.StringVar(&role, "role", string(models.RoleRider), "RIDER, DRIVER or ADMIN")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_EXPIRE)")
	flag.Parse()

	r, ok := models.ParseRole(role)
	if userID == "" || !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if ttl <= 0 {
		ttl = cfg.JWTAccessExpire
	}

	token, err := auth.NewTokens(cfg.JWTAccessSecret, ttl).Issue(userID, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
