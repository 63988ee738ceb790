package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the seeded companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		companies, err := e.Store.ListCompanies(ctx)
		if err != nil {
			return err
		}

		for _, c := range companies {
			fmt.Printf("%-8s %s\n", c.Code, c.Name)
		}
		fmt.Printf("%d companies\n", len(companies))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}
