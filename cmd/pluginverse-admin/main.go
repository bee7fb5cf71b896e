// Package main is the entry point for the Pluginverse admin CLI.
// This tool provides administrative commands for managing users and
// deposits directly against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/config"
	"github.com/pluginverse/pluginverse/internal/lock"
	"github.com/pluginverse/pluginverse/internal/pkg/crypto"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/repository/postgres"
	"github.com/pluginverse/pluginverse/internal/repository/sqlite"
	"github.com/pluginverse/pluginverse/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("pluginverse-admin %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)

	case "secret":
		err = runSecret()

	case "user":
		err = runUser(os.Args[2:])

	case "deposit":
		err = runDeposit(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Pluginverse Admin CLI

Usage:
  pluginverse-admin <command> [arguments]

Commands:
  user        Manage users (create, list, promote)
  deposit     Manage deposits (list, approve, reject)
  secret      Generate a random JWT signing secret
  version     Print version information
  help        Show this help message

Examples:
  pluginverse-admin user create -username admin -email admin@example.com -password s3cret -admin
  pluginverse-admin user list
  pluginverse-admin user promote -id <uuid>
  pluginverse-admin deposit list -status Pending
  pluginverse-admin deposit approve -id <uuid>
  pluginverse-admin secret

The CLI reads the same configuration as the server (config.yaml or
PLUGINVERSE_* environment variables).`)
}

func runSecret() error {
	secret, err := crypto.GenerateSecret(32)
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}

// env assembles database-backed services the way the server does, minus
// the HTTP surface.
type env struct {
	repos    repository.Repositories
	users    *service.UserService
	deposits *service.DepositService
	close    func()
}

func setup(ctx context.Context, configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	var repos repository.Repositories
	var closeDB func()
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			CacheSize:       cfg.Database.CacheSize,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		repos = repository.Repositories{
			Users:    sqlite.NewUserRepository(db),
			Plugins:  sqlite.NewPluginRepository(db),
			Deposits: sqlite.NewDepositRepository(db),
			Settings: sqlite.NewSettingsRepository(db),
		}
		closeDB = func() { db.Close() }
	} else {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		repos = repository.Repositories{
			Users:    postgres.NewUserRepository(db),
			Plugins:  postgres.NewPluginRepository(db),
			Deposits: postgres.NewDepositRepository(db),
			Settings: postgres.NewSettingsRepository(db),
		}
		closeDB = func() { db.Close() }
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	return &env{
		repos:    repos,
		users:    service.NewUserService(repos.Users, tokens, logger),
		deposits: service.NewDepositService(repos.Deposits, lock.NewMemoryLocker(), logger),
		close:    closeDB,
	}, nil
}

func runUser(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pluginverse-admin user <create|list|promote> [flags]")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		username := fs.String("username", "", "username (required)")
		email := fs.String("email", "", "email (required)")
		password := fs.String("password", "", "password (required)")
		admin := fs.Bool("admin", false, "grant admin privileges")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *username == "" || *email == "" || *password == "" {
			return fmt.Errorf("username, email and password are required")
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		out, err := e.users.SignUp(ctx, service.SignUpInput{
			Username: *username,
			Email:    *email,
			Password: *password,
		})
		if err != nil {
			return err
		}
		if *admin {
			if err := e.users.Promote(ctx, out.User.ID); err != nil {
				return err
			}
		}
		fmt.Printf("created user %s (%s)\n", out.User.Username, out.User.ID)
		return nil

	case "list":
		fs := flag.NewFlagSet("user list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		result, err := e.users.List(ctx, repository.ListOptions{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCOINS\tADMIN\tCREATED")
		for _, u := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
				u.ID, u.Username, u.Email, u.Coins, u.IsAdmin, u.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "promote":
		fs := flag.NewFlagSet("user promote", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		id := fs.String("id", "", "user ID (required)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("user ID is required")
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.users.Promote(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("user %s is now an admin\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown user subcommand: %s", args[0])
	}
}

func runDeposit(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pluginverse-admin deposit <list|approve|reject> [flags]")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("deposit list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		status := fs.String("status", "", "filter by status (Pending, Approved, Rejected)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		result, err := e.deposits.ListAll(ctx, repository.ListOptions{})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSER\tAMOUNT\tMETHOD\tTXN\tSTATUS\tCREATED")
		for _, d := range result.Items {
			if *status != "" && string(d.Status) != *status {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				d.ID, d.Username, d.Amount, d.Method, d.TxnID, d.Status, d.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "approve":
		fs := flag.NewFlagSet("deposit approve", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		id := fs.String("id", "", "deposit ID (required)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("deposit ID is required")
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		deposit, err := e.deposits.Approve(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("approved deposit %s: %d coins credited to %s\n", deposit.ID, deposit.Amount, deposit.Username)
		return nil

	case "reject":
		fs := flag.NewFlagSet("deposit reject", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		id := fs.String("id", "", "deposit ID (required)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("deposit ID is required")
		}

		e, err := setup(ctx, *configPath)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.deposits.Reject(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("rejected deposit %s\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown deposit subcommand: %s", args[0])
	}
}
