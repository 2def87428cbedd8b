// Command devtoken mints a bearer token signed with the configured JWT secret, for local testing.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/platform/config"
	"github.com/SscSPs/fee_ledger_app/internal/utils"
)

func main() {
	userID := flag.String("user", "dev_accountant", "subject of the token")
	role := flag.String("role", string(domain.RoleAccountant), "ACCOUNTANT or ADMIN")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *role != string(domain.RoleAccountant) && *role != string(domain.RoleAdmin) {
		logger.Error("Unknown role", slog.String("role", *role))
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	token, err := utils.GenerateJWT(*userID, *role, cfg.JWTSecret, *ttl, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to sign token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(token)
}
