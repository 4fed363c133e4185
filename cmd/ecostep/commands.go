package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tech-arch1tect/ecostep/app"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/database"
	"github.com/tech-arch1tect/ecostep/services/accounts"
	"github.com/tech-arch1tect/ecostep/services/auth"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"github.com/tech-arch1tect/ecostep/services/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// env holds what every subcommand needs once the configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *logging.Service
}

func (e *env) load() error {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewService(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *env) openDB() (*gorm.DB, func(), error) {
	db, err := database.Open(*e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "ecostep",
		Short:         "EcoStep carbon footprint web application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
	}

	root.AddCommand(serveCmd(e))
	root.AddCommand(migrateCmd(e))
	root.AddCommand(accountsCmd(e))
	root.AddCommand(tokenCmd(e))
	return root
}

func serveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp().WithConfig(e.cfg).Build()
			if err != nil {
				return err
			}
			if code := a.Run(); code != 0 {
				return fmt.Errorf("server exited with code %d", code)
			}
			return nil
		},
	}
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := database.Migrate(db, app.Models()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func accountsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage user accounts",
	}

	activate := &cobra.Command{
		Use:   "activate <email>",
		Short: "Mark an account as verified without an email round trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			hasher := accounts.NewHasher(e.cfg.Auth)
			svc := accounts.NewService(accounts.NewStore(db, hasher, e.logger), hasher, e.logger)

			email := accounts.NormalizeEmail(args[0])
			if err := svc.Activate(context.Background(), email); err != nil {
				return fmt.Errorf("failed to activate %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is active\n", email)
			return nil
		},
	}

	cmd.AddCommand(activate)
	return cmd
}

func tokenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with verification and reset tokens",
	}

	var email, purpose string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a verification or password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			p := token.Purpose(purpose)
			if !p.Valid() {
				return fmt.Errorf("--purpose must be %q or %q", token.PurposeVerify, token.PurposeReset)
			}

			codec, err := token.NewCodec(e.cfg.Token, token.WithLogger(e.logger))
			if err != nil {
				return err
			}
			tok, err := codec.Issue(accounts.NormalizeEmail(email), p, 0)
			if err != nil {
				return err
			}

			path := auth.VerifyPath
			if p == token.PurposeReset {
				path = auth.ResetPath
			}
			e.logger.Info("token issued from cli", zap.String("purpose", purpose))
			fmt.Fprintln(cmd.OutOrStdout(), auth.BuildLink(strings.TrimRight(e.cfg.App.URL, "/"), path, tok))
			return nil
		},
	}
	issue.Flags().StringVar(&email, "email", "", "Account email the token is issued for")
	issue.Flags().StringVar(&purpose, "purpose", string(token.PurposeVerify), "Token purpose: verify|reset")

	cmd.AddCommand(issue)
	return cmd
}
