package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/client/models"
	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/spf13/cobra"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// username takes the first positional argument or prompts for it.
func (r *runner) username(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(r.app.reader, "Enter username", cmd.OutOrStdout())
}

// passkey reads the credential from path, or prompts without echo.
func (r *runner) passkey(cmd *cobra.Command, path string) ([]byte, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read passkey file: %w", err)
		}
		return b, nil
	}
	return getSecret("Enter passkey credential", cmd.OutOrStdout())
}

func (r *runner) registerCmd() *cobra.Command {
	var passkeyFile string

	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account bound to a passkey credential",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := r.username(cmd, args)
			if err != nil {
				return err
			}
			credential, err := r.passkey(cmd, passkeyFile)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(credential)

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			reg, err := r.app.sessions.Register(ctx, username, credential)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %s (id %s)\n", reg.Username, reg.UserID)
			fmt.Fprintln(out, "Run 'shieldauth setup-totp' to enable two-factor login.")
			return nil
		},
	}
	cmd.Flags().StringVar(&passkeyFile, "passkey-file", "", "read the passkey credential from this file")
	return cmd
}

func (r *runner) renewTicketCmd() *cobra.Command {
	var passkeyFile string

	cmd := &cobra.Command{
		Use:   "renew-ticket [username]",
		Short: "Issue a fresh enrollment ticket for an account without TOTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := r.username(cmd, args)
			if err != nil {
				return err
			}
			credential, err := r.passkey(cmd, passkeyFile)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(credential)

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			reg, err := r.app.sessions.RenewTicket(ctx, username, credential)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "New enrollment ticket saved for %s\n", reg.Username)
			fmt.Fprintln(out, "Run 'shieldauth setup-totp' to enable two-factor login.")
			return nil
		},
	}
	cmd.Flags().StringVar(&passkeyFile, "passkey-file", "", "read the passkey credential from this file")
	return cmd
}

func (r *runner) setupTOTPCmd() *cobra.Command {
	var ticket, qrPath string
	var reenroll bool

	cmd := &cobra.Command{
		Use:   "setup-totp",
		Short: "Enroll an authenticator app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reenroll && ticket != "" {
				return fmt.Errorf("--reenroll and --ticket are mutually exclusive")
			}

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			var (
				setup *models.TOTPSetup
				err   error
			)
			if reenroll {
				setup, err = r.app.sessions.Reenroll(ctx)
			} else {
				setup, err = r.app.sessions.SetupTOTP(ctx, ticket)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := printTOTPSetup(out, setup, qrPath); err != nil {
				return err
			}
			if reenroll {
				fmt.Fprintln(out, "All sessions were revoked. Log in again with the new code.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ticket, "ticket", "", "enrollment ticket (default: the one saved by register)")
	cmd.Flags().StringVar(&qrPath, "qr", "", "write the QR code PNG to this file")
	cmd.Flags().BoolVar(&reenroll, "reenroll", false, "replace the secret using the current session")
	return cmd
}

func printTOTPSetup(out io.Writer, setup *models.TOTPSetup, qrPath string) error {
	fmt.Fprintf(out, "Secret: %s\n", setup.Secret)
	fmt.Fprintf(out, "URI:    %s\n", setup.URI)

	if qrPath != "" && len(setup.QRCodePNG) > 0 {
		if err := os.WriteFile(qrPath, setup.QRCodePNG, 0o600); err != nil {
			return fmt.Errorf("write qr code: %w", err)
		}
		fmt.Fprintf(out, "QR code written to %s\n", qrPath)
	}
	fmt.Fprintln(out, "The secret is shown only once.")
	return nil
}

func (r *runner) loginCmd() *cobra.Command {
	var passkeyFile, code string

	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in with passkey and TOTP code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := r.username(cmd, args)
			if err != nil {
				return err
			}
			credential, err := r.passkey(cmd, passkeyFile)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(credential)

			if code == "" {
				code, err = getSimpleText(r.app.reader, "Enter TOTP code", cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			res, err := r.app.sessions.Login(ctx, username, credential, code)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s, session valid until %s\n",
				res.Username, res.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&passkeyFile, "passkey-file", "", "read the passkey credential from this file")
	cmd.Flags().StringVar(&code, "code", "", "current TOTP code")
	return cmd
}

func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity behind the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			info, err := r.app.sessions.WhoAmI(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s, settings version %d)\n",
				info.Username, info.UserID, info.SettingsVersion)
			return nil
		},
	}
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			if err := r.app.sessions.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (r *runner) analyzeCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Check a screenshot or text for dark patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			var image []byte
			if imagePath != "" {
				b, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				image = b
			}

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			text, a, err := r.app.sessions.Analyze(ctx, image, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(image) > 0 {
				fmt.Fprintf(out, "Extracted text:\n%s\n\n", text)
			}
			fmt.Fprintf(out, "Detected:    %t\n", a.Detected)
			fmt.Fprintf(out, "Pattern:     %s\n", a.PatternType)
			fmt.Fprintf(out, "Confidence:  %.2f\n", a.ConfidenceScore)
			fmt.Fprintf(out, "Description: %s\n", a.Description)
			for _, e := range a.AffectedElements {
				fmt.Fprintf(out, "  - %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "screenshot to run OCR on (JPEG)")
	return cmd
}
