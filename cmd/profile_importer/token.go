package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/profile-importer/internal/server"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a client such as the browser extension",
	RunE:  runToken,
}

var tokenClient string

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "Client ID embedded in the token")
	_ = tokenCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret (or JWT_SECRET) is not set")
	}
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenClient)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
