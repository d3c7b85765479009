package main

import (
	"context"
	"fmt"

	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var demote bool

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant (or with --demote, revoke) the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.RoleAdmin
		if demote {
			role = models.RoleUser
		}
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			users := userstore.New(db)
			u, err := users.GetByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("look up %s: %w", args[0], err)
			}
			if err := users.SetRole(ctx, u.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, role)
			return nil
		})
	},
}

func init() {
	promoteCmd.Flags().BoolVar(&demote, "demote", false, "set the role back to user")
}
