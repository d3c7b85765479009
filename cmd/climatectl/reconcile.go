package main

import (
	"context"
	"encoding/json"
	"fmt"

	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var reconcileUser string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild users' joined lists from the initiative rosters",
	Long: `Runs one reconciliation pass. Every user's joined list and joined counter
is rebuilt from the initiative rosters. Use --user to repair a single account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
			users := userstore.New(db)
			rec := participation.NewReconciler(initiativestore.New(db), users, nil, logger)

			if reconcileUser != "" {
				return reconcileOne(ctx, cmd, rec, users)
			}

			rep, err := rec.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("reconcile pass finished",
				zap.Int("checked", rep.Checked),
				zap.Int("repaired", rep.Repaired),
				zap.Int("conflicts", rep.Conflicts),
				zap.Int("failed", rep.Failed))
			return json.NewEncoder(cmd.OutOrStdout()).Encode(rep)
		})
	},
}

func reconcileOne(ctx context.Context, cmd *cobra.Command, rec *participation.Reconciler, users *userstore.Store) error {
	id, err := primitive.ObjectIDFromHex(reconcileUser)
	if err != nil {
		return fmt.Errorf("bad --user id %q", reconcileUser)
	}
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	repaired, err := rec.ReconcileUser(ctx, *u)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %s repaired=%t\n", id.Hex(), repaired)
	return nil
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileUser, "user", "", "reconcile only this user id")
}
