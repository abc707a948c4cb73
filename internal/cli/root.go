// Package cli implements formsctl, the operator command line. It runs the
// same services as the API server with an operator identity, against the
// store the environment points at.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sakif/formsmith/internal/config"
	"github.com/sakif/formsmith/internal/repository"
	"github.com/sakif/formsmith/internal/server"
	"github.com/sakif/formsmith/internal/service"
)

// DefaultOperator is the identity formsctl acts as unless --as is given.
const DefaultOperator = "formsctl"

// ValidOutputs are the accepted --output values.
var ValidOutputs = []string{"json", "yaml"}

// Services is what a command needs from the store.
type Services struct {
	Forms     *service.FormService
	Responses *service.ResponseService
	Close     func() error
}

// RootOptions holds global flags and the hooks tests replace.
type RootOptions struct {
	Output   string
	Operator string

	// Getenv reads configuration; os.Getenv by default.
	Getenv func(string) string
	// Open connects to the store; openFromEnv by default.
	Open func(ctx context.Context, opts *RootOptions) (*Services, error)
}

// caller is the privileged identity every command runs with.
func (o *RootOptions) caller() service.Caller {
	return service.Caller{UserID: o.Operator, Privileged: true}
}

// NewRootCommand creates the formsctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Getenv: os.Getenv, Open: openFromEnv})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formsctl",
		Short: "Operate a formsmith deployment",
		Long: `formsctl inspects and repairs forms with operator privileges.

It reads the same environment as the API server (ROWSTORE_URL, DB_PATH,
JWT_SECRET, ...) and an optional .env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "json", "output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Operator, "as", DefaultOperator, "operator id recorded for the action")

	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newResponsesCommand(opts))
	cmd.AddCommand(newRecentCommand(opts))
	cmd.AddCommand(newActivityCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// openFromEnv builds the services over the store the environment selects.
// Logs go to stderr so that stdout stays parseable.
func openFromEnv(ctx context.Context, opts *RootOptions) (*Services, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.Getenv)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(os.Stderr)

	store, closer, err := server.OpenStore(cfg.Server(), logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewTranslator(store, logger)
	forms := service.NewFormService(repo, logger)
	return &Services{
		Forms:     forms,
		Responses: service.NewResponseService(forms, repo, nil, logger),
		Close:     closer.Close,
	}, nil
}

// withServices opens the store, runs fn and closes the store.
func withServices(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, svc *Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := opts.Open(ctx, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer svc.Close()

	return fn(ctx, svc)
}
