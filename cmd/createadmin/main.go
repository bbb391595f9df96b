// Command createadmin creates a verified administrator account.
//
//	createadmin -email admin@example.org -name "Site Admin"
//
// The password is read from ADMIN_PASSWORD or prompted for on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/spec-kit/member-directory/internal/config"
	"github.com/spec-kit/member-directory/internal/domain"
	"github.com/spec-kit/member-directory/internal/observability"
	"github.com/spec-kit/member-directory/internal/persistence"
	"github.com/spec-kit/member-directory/internal/repository"
	"github.com/spec-kit/member-directory/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "createadmin:", err)
		os.Exit(1)
	}
}

func run() error {
	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "Admin User", "admin full name")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	password, err := readPassword()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Accounts: repository.NewAccountRepository(pg.PoolHandle()),
		Logger:   logger,
	})
	account, err := authService.CreateAdmin(ctx, *email, password, *name)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return fmt.Errorf("%s is already registered", domain.NormalizeIdentity(*email))
		}
		return err
	}

	fmt.Printf("admin %s created\n", account.Identity)
	return nil
}

func readPassword() (string, error) {
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("ADMIN_PASSWORD must be set when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", domain.ErrPasswordMismatch
	}
	if len(first) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	return string(first), nil
}
