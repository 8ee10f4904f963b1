package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"eduplatform-backend/config"
	"eduplatform-backend/internal/bootstrap"
	"eduplatform-backend/internal/superadmin"
	"eduplatform-backend/log"
)

func main() {
	email := flag.String("email", "", "Email of the super admin account")
	password := flag.String("password", "", "Password to set; keeps the current one when promoting an existing account")
	flag.Parse()

	if *email == "" {
		fmt.Println("--email is required")
		os.Exit(1)
	}

	cfg := config.Load()
	log.EnsureLogger(cfg.Debug)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, closeStore, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		fmt.Println("Database connection failed:", err)
		os.Exit(1)
	}
	defer closeStore()

	u, created, err := superadmin.Ensure(ctx, st, *email, *password, time.Now().UTC())
	if err != nil {
		fmt.Println("Provisioning failed:", err)
		closeStore()
		os.Exit(1)
	}

	if created {
		fmt.Println("Super admin created:", u.Email, u.ID.Hex())
	} else {
		fmt.Println("Super admin promoted:", u.Email, u.ID.Hex())
	}
}
