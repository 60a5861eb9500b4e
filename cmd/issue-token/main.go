// Command issue-token prints a signed token for local use.
//
//	issue-token admin [role]    admin realm, role defaults to admin
//	issue-token player <userID> player realm for an existing user
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/attaboy/lottery/internal/auth"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/google/uuid"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: issue-token admin [role] | issue-token player <userID>")
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	playerExpiry, err := time.ParseDuration(cfg.JWTPlayerExpiry)
	if err != nil {
		return fmt.Errorf("parse player JWT expiry: %w", err)
	}
	adminExpiry, err := time.ParseDuration(cfg.JWTAdminExpiry)
	if err != nil {
		return fmt.Errorf("parse admin JWT expiry: %w", err)
	}
	mgr := auth.NewJWTManager(cfg.JWTSecret, playerExpiry, adminExpiry)

	var token string
	switch auth.Realm(args[0]) {
	case auth.RealmAdmin:
		role := auth.RoleAdmin
		if len(args) > 1 {
			role = args[1]
		}
		token, err = mgr.GenerateToken(auth.RealmAdmin, uuid.New(), role)
	case auth.RealmPlayer:
		if len(args) < 2 {
			return fmt.Errorf("player realm needs a user ID")
		}
		id, perr := uuid.Parse(args[1])
		if perr != nil {
			return fmt.Errorf("parse user ID: %w", perr)
		}
		token, err = mgr.GenerateToken(auth.RealmPlayer, id, "")
	default:
		return fmt.Errorf("unknown realm %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
