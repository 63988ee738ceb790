package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twfin/twfin/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [company codes...]",
	Short: "Export cached data to an XLSX workbook",
	Long:  "Writes cached revenue records and market-cap snapshots for the given companies (all seeded companies if none given) to an XLSX file. No upstream calls are made.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, "fetch")
		if err != nil {
			return err
		}
		defer e.Close()

		codes := args
		if len(codes) == 0 {
			companies, err := e.Store.ListCompanies(ctx)
			if err != nil {
				return eris.Wrap(err, "list companies")
			}
			for _, c := range companies {
				codes = append(codes, c.Code)
			}
		}

		if err := export.NewWorkbook(e.Store).Write(ctx, exportOut, codes); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("companies", len(codes)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "twfin.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
