package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/climatehub/internal/app/system/indexes"
	"github.com/dalemusser/climatehub/internal/app/system/validators"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var skipValidators bool

var schemaCmd = &cobra.Command{
	Use:     "indexes",
	Aliases: []string{"schema"},
	Short:   "Ensure collection validators and indexes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			if !skipValidators {
				if err := validators.EnsureAll(ctx, db); err != nil {
					return fmt.Errorf("ensure validators: %w", err)
				}
			}
			if err := indexes.EnsureAll(ctx, db); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ensured")
			return nil
		})
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&skipValidators, "skip-validators", false, "only ensure indexes")
}
