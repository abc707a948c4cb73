package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/config"
)

// newTokenCommand mints an identity token signed with JWT_SECRET, for
// calling the API as a given user from scripts.
func newTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:     "token <user-id>",
		Short:   "Mint an API token for a user",
		Example: `  curl -H "Authorization: Bearer $(formsctl token u1)" localhost:8080/api/forms`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return NewExitError(ExitCommandError, "--ttl must be positive")
			}
			if err := config.LoadDotEnv(); err != nil {
				return WrapExitError(ExitCommandError, "failed to read .env", err)
			}
			cfg, err := config.Load(opts.Getenv)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			if cfg.JWTSecret == "" {
				return NewExitError(ExitCommandError, "JWT_SECRET is not set")
			}

			tokens, err := auth.NewTokenService(cfg.JWTSecret)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid JWT_SECRET", err)
			}
			token, err := tokens.GenerateWithDuration(args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
