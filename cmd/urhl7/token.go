package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/URMC/urHL7/internal/config"
	"github.com/URMC/urHL7/internal/platform/auth"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token signed with JWT_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			token, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     cfg.JWTIssuer,
				Audience:   cfg.JWTAudience,
				SigningKey: []byte(cfg.JWTSigningKey),
			}, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Token subject, usually the calling system")
	cmd.Flags().StringSlice("role", []string{auth.RoleReader}, "Granted role (repeatable): admin, hl7_reader, hl7_writer")
	cmd.Flags().Duration("ttl", 0, "Token lifetime; 0 issues a token without expiry")
	return cmd
}
