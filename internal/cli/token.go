package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/validator"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Subject string
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the API",
		Long: `Print a signed operator token for the sync API. The token is valid
for JWT_OPERATOR_EXPIRATION_TIME.

Example:
  timeoff-sync token --subject ops@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validator.IsValidEmail(opts.Subject) {
				return fmt.Errorf("--subject must be an email address, got %q", opts.Subject)
			}
			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}
			token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.OperatorExpiration).GenerateOperatorToken(opts.Subject)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.ErrOrStderr(), "expires", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "operator email recorded in the token (required)")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
