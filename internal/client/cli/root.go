package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/shieldauth/internal/client/config"
	"github.com/spf13/cobra"
)

type opener func(cfg *config.Config) (*App, error)

// runner opens the App lazily, after flags are parsed, and closes it once
// the command has finished.
type runner struct {
	cfg  *config.Config
	open opener
	app  *App
}

// Execute runs the CLI with args (normally os.Args[1:]).
func Execute(ctx context.Context, cfg *config.Config, args []string) error {
	r := &runner{cfg: cfg, open: NewApp}
	root := r.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, r.close())
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "shieldauth",
		Short:         "ShieldUI authentication client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if r.app != nil {
				return nil
			}
			app, err := r.open(r.cfg)
			if err != nil {
				return err
			}
			r.app = app
			return nil
		},
	}
	root.SetIn(os.Stdin)

	r.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		r.registerCmd(),
		r.renewTicketCmd(),
		r.setupTOTPCmd(),
		r.loginCmd(),
		r.whoamiCmd(),
		r.logoutCmd(),
		r.analyzeCmd(),
	)
	return root
}

func (r *runner) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

// requestContext bounds one server round trip.
func (r *runner) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if r.cfg.RequestTimeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), r.cfg.RequestTimeout)
}
