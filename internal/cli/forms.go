package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/formsmith/internal/model"
)

func newGetCommand(opts *RootOptions) *cobra.Command {
	var byShare bool

	cmd := &cobra.Command{
		Use:   "get <form-id>",
		Short: "Show a form with its elements",
		Example: `  formsctl get 9m4e2mr0ui3e8a215n4g
  formsctl get --share k3x9q0ab -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				var (
					form *model.Form
					err  error
				)
				if byShare {
					form, err = svc.Forms.GetByShareID(ctx, args[0])
				} else {
					form, err = svc.Forms.GetByID(ctx, opts.caller(), args[0])
				}
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Output, form)
			})
		},
	}

	cmd.Flags().BoolVar(&byShare, "share", false, "treat the argument as a share id")
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <owner-id>",
		Short: "List the forms a user owns, with response counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				forms, err := svc.Forms.ListForOwner(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Output, forms)
			})
		},
	}
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <form-id>",
		Short: "Delete a form with its elements and responses",
		Long: `Delete a form with its elements and responses.

Elements go first, then responses, then the form row. If a step fails the
command reports which steps already ran; running it again finishes the job.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				if err := svc.Forms.Delete(ctx, opts.caller(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "deleted form %s\n", args[0])
				return nil
			})
		},
	}
}

func newResponsesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "responses <form-id>",
		Short: "List a form's responses, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				responses, err := svc.Responses.List(ctx, opts.caller(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Output, responses)
			})
		},
	}
}

func newRecentCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent <owner-id>",
		Short: "Show the newest responses across a user's forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return NewExitError(ExitCommandError, "--limit must not be negative")
			}
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				owner := opts.caller()
				owner.UserID = args[0]
				listings, err := svc.Responses.Recent(ctx, owner, limit)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Output, listings)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum responses to show (0 for the default)")
	return cmd
}

func newActivityCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activity <user-id>",
		Short: "Show the forms a user created and the responses they submitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, svc *Services) error {
				activity, err := svc.Forms.UserActivity(ctx, opts.caller(), args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Output, activity)
			})
		},
	}
}
