package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
)

// NewUserCmd manages accounts. Registration is not exposed over HTTP.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var (
		username string
		password string
		staff    bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createUser(cmd.Context(), *configPath, username, password, staff)
		},
	}
	create.Flags().StringVar(&username, "username", "", "account username")
	create.Flags().StringVar(&password, "password", "", "account password")
	create.Flags().BoolVar(&staff, "staff", false, "allow the user to author quizzes")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func createUser(ctx context.Context, configPath, username, password string, staff bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("user create needs a persistent database driver")
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Only hashing is used here, so a placeholder secret is enough when none is configured.
	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "unused"
	}
	tokens, err := auth.NewService(store, secret, 0, 0)
	if err != nil {
		return err
	}
	user, err := tokens.Register(ctx, username, password, staff)
	if err != nil {
		return err
	}
	logger.Info("user created", "user_id", user.ID, "username", user.Username, "staff", user.IsStaff)
	return nil
}
