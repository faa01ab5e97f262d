package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"cognis/internal/config"
	"cognis/internal/database"
	"cognis/internal/domain"
	"cognis/internal/modules/audit"
	"cognis/internal/modules/auth"
	"cognis/internal/pkg/jwt"
	"cognis/internal/pkg/validator"
	"cognis/internal/repository"
)

// env is populated by the root command before any subcommand runs.
type env struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "cognisctl",
		Short:         "Administrative tasks for the Cognis backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newCreateAdminCmd(e),
		newPruneAuditCmd(e),
	)
	return root
}

func (e *env) withDB(fn func(db *gorm.DB) error) error {
	db, err := database.Connect(e.cfg.DatabaseURL, database.WithSilentLogger())
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	return fn(db)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDB(func(db *gorm.DB) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

// adminInput carries the same rules signup enforces through its binding tags.
type adminInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (in adminInput) validate() error {
	details := validator.Validate(in)
	// bcrypt limits passwords to 72 bytes, not runes.
	if len(in.Password) > 72 && details["password"] == "" {
		if details == nil {
			details = map[string]string{}
		}
		details["password"] = "max=72 bytes"
	}
	if len(details) == 0 {
		return nil
	}

	fields := make([]string, 0, len(details))
	for field, rule := range details {
		fields = append(fields, field+": "+rule)
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", errInvalidAdmin, strings.Join(fields, ", "))
}

var errInvalidAdmin = errors.New("invalid admin account")

func newCreateAdminCmd(e *env) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := adminInput{
				Username: strings.TrimSpace(username),
				Email:    strings.TrimSpace(email),
				Password: password,
			}
			if err := in.validate(); err != nil {
				return err
			}

			tokens, err := jwt.New(e.cfg.JWTSecret, e.cfg.JWTAlgorithm, e.cfg.JWTAccessTTL)
			if err != nil {
				return err
			}
			return e.withDB(func(db *gorm.DB) error {
				svc := auth.NewService(repository.NewUserRepository(db), tokens)
				user, err := svc.CreateUser(cmd.Context(), in.Username, in.Email, in.Password, domain.RoleAdmin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newPruneAuditCmd(e *env) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune-audit",
		Short: "Delete audit log entries older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDB(func(db *gorm.DB) error {
				svc := audit.NewService(repository.NewAuditLogRepository(db))
				n, err := svc.Prune(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit entries\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "retention window, e.g. 720h")
	return cmd
}
