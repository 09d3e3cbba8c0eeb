package main

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/config"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// tokenCmd mints an access token for local testing. Real tokens come from
// the identity provider sharing JWT_SECRET.
func tokenCmd() *cobra.Command {
	var (
		id   string
		role string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			actorID := uuid.New()
			if id != "" {
				if actorID, err = uuid.Parse(id); err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
			}

			token, expiresAt, err := auth.NewJWTManager(cfg.JWT).IssueAccessToken(domain.Actor{ID: actorID, Role: domain.Role(role)})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "actor:   %s (%s)\n", actorID, role)
			fmt.Fprintf(out, "expires: %s\n", expiresAt.Format(time.RFC3339))
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Actor id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleDoctor), "Actor role: admin or doctor")
	return cmd
}
