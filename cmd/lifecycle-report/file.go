package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"readyparser/internal/files"
	"readyparser/internal/lifecycle"
	"readyparser/internal/validation"
)

func newFileCmd(c *cli) *cobra.Command {
	var (
		f      reportFlags
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "file",
		Short: "Build the report for one workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.params()
			if err != nil {
				return err
			}

			v := validation.NewFileValidator(c.logger)
			if err := v.ValidateWorkbook(input); err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(input), files.ReportFileName(files.FormatFileName(input)))
			}
			if err := v.ValidateOutputDirectory(filepath.Dir(output)); err != nil {
				return err
			}

			res, err := lifecycle.NewEngine(c.logger).Run(cmd.Context(), input, output, p)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), input, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "install base workbook (.xlsx or .xlsm)")
	cmd.Flags().StringVar(&output, "output", "", "report path (default: <input dir>/<name>_parsed.xlsx)")
	_ = cmd.MarkFlagRequired("input")
	addReportFlags(cmd, &f)
	_ = cmd.MarkFlagRequired("file-type")

	return cmd
}
