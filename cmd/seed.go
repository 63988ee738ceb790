package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the company registry from the TWSE open-data feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		total, err := e.Seeder.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("seeding complete", zap.Int("companies", total))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
