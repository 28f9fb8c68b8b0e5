package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"readyparser/internal/batch"
	"readyparser/internal/files"
	"readyparser/internal/lifecycle"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts/domain"
)

func newFolderCmd(c *cli) *cobra.Command {
	var (
		f       reportFlags
		dir     string
		outDir  string
		zipPath string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Build reports for every workbook in a directory",
		Long: `folder runs the report for each .xlsx/.xlsm file directly under --dir,
concurrently, and writes <name>_parsed.xlsx files to --out-dir. With --zip the
reports are also packed into one archive. A file that fails does not stop
the others, but the command exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.fileType == "" {
				f.fileType = string(domain.SingleCustomer)
			}
			p, err := f.params()
			if err != nil {
				return err
			}

			v := validation.NewFileValidator(c.logger)
			if err := v.ValidateInputDirectory(dir); err != nil {
				return err
			}
			if err := v.ValidateOutputDirectory(outDir); err != nil {
				return err
			}

			found, err := files.NewDiscovery(dir).FindWorkbooks(".")
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return fmt.Errorf("no .xlsx or .xlsm workbooks in %s", dir)
			}

			runner := batch.NewRunner(lifecycle.NewEngine(c.logger), c.logger, batch.WithWorkers(workers))
			summary, runErr := runner.Run(cmd.Context(), batch.PlanJobs(files.Paths(found), outDir), p)
			if summary != nil {
				out := cmd.OutOrStdout()
				for _, res := range summary.Results {
					if res.Status == batch.StatusSuccess {
						printResult(out, res.Input, res.Report)
					} else {
						fmt.Fprintf(out, "%s: failed: %s\n", res.Input, res.Error)
					}
				}
				fmt.Fprintf(out, "%d succeeded, %d failed in %s\n", summary.Succeeded, summary.Failed, summary.Duration.Round(time.Millisecond))
			}
			if runErr != nil {
				return runErr
			}

			if zipPath != "" {
				n, err := files.ZipFiles(zipPath, summary.Outputs())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d reports archived to %s\n", n, zipPath)
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d reports failed", summary.Failed, len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of install base workbooks")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the generated reports")
	cmd.Flags().StringVar(&zipPath, "zip", "", "also write every report into this zip archive")
	cmd.Flags().IntVar(&workers, "workers", 4, "reports built concurrently")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("out-dir")
	addReportFlags(cmd, &f)

	return cmd
}
