package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/batchpulse/internal/apikey"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/spf13/cobra"
)

type createdKey struct {
	*models.APIKey
	Key string `json:"key"`
}

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysCreateCmd(a))
	return cmd
}

func newKeysCreateCmd(a *app) *cobra.Command {
	var (
		name   string
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, key, err := apikey.Generate(strings.TrimSpace(name), scopes, 0)
			if err != nil {
				return err
			}
			err = a.with(cmd, func(ctx context.Context, b *backend) error {
				return b.keys.CreateAPIKey(ctx, key)
			})
			if err != nil {
				return fmt.Errorf("store key: %w", err)
			}

			if err := a.render(createdKey{APIKey: key, Key: raw}, []string{"id", "name", "prefix", "scopes", "key"}, [][]string{{
				key.ID.String(), key.Name, key.KeyPrefix, strings.Join(key.Scopes, ","), raw,
			}}); err != nil {
				return err
			}
			if a.output == "table" {
				fmt.Fprintln(a.out, "\nStore this key now; it cannot be shown again.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringSliceVar(&scopes, "scopes", []string{models.ScopeRead}, "Scopes: read, ingest, analyze, admin")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
