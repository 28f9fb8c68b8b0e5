package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"readyparser/internal/infrastructure"
	"readyparser/internal/lifecycle"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts"
	"readyparser/pkg/contracts/domain"
)

// cli carries state shared by the subcommands.
type cli struct {
	logLevel string
	logger   *slog.Logger
}

// reportFlags are the report parameters common to file and folder.
type reportFlags struct {
	start        string
	end          string
	includeMinor bool
	target       string
	fileType     string
	dateFormat   string
	groupBy      string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "lifecycle-report",
		Short: "Build LDoS/EoSMD/EoPSD/LRD lifecycle reports from install base workbooks",
		Long: `lifecycle-report reads vendor install base exports (.xlsx or .xlsm), keeps the
rows whose selected lifecycle date falls inside the window, and writes a
four-sheet report grouped into portfolio buckets.`,
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), c.logLevel)
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			return nil
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newFileCmd(c), newFolderCmd(c))
	return root
}

func addReportFlags(cmd *cobra.Command, f *reportFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.start, "start", "", "first day of the window, YYYY-MM-DD")
	flags.StringVar(&f.end, "end", "", "last day of the window, YYYY-MM-DD")
	flags.BoolVar(&f.includeMinor, "include-minor", false, "keep items flagged Minor")
	flags.StringVar(&f.target, "target", "", fmt.Sprintf("lifecycle date to select on (%s)", joinQuoted(domain.DateTargets)))
	flags.StringVar(&f.fileType, "file-type", "", fmt.Sprintf("customer mode (%s)", joinQuoted(domain.CustomerModes)))
	flags.StringVar(&f.dateFormat, "date-format", string(lifecycle.DayMonthYear), "output date format (DD/MM/YYYY, MM/DD/YYYY, YYYY/MM/DD)")
	flags.StringVar(&f.groupBy, "group-by", string(lifecycle.GroupByProductAndDate), "row grouping (product_date, product)")

	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("target")
}

// params validates the flags and converts them to engine parameters.
func (f *reportFlags) params() (lifecycle.Params, error) {
	window, err := validation.ParseDateWindow(f.start, f.end)
	if err != nil {
		return lifecycle.Params{}, err
	}
	target, err := domain.ParseDateTarget(f.target)
	if err != nil {
		return lifecycle.Params{}, err
	}
	mode, err := domain.ParseCustomerMode(f.fileType)
	if err != nil {
		return lifecycle.Params{}, err
	}
	format, err := lifecycle.ParseDateFormat(f.dateFormat)
	if err != nil {
		return lifecycle.Params{}, err
	}
	grouping, err := lifecycle.ParseGrouping(f.groupBy)
	if err != nil {
		return lifecycle.Params{}, err
	}

	return lifecycle.Params{
		Target:            target,
		Start:             window.Start,
		End:               window.End,
		IncludeMinorItems: f.includeMinor,
		Mode:              mode,
		DateFormat:        format,
		Grouping:          grouping,
	}, nil
}

func printResult(w io.Writer, input string, res *lifecycle.Result) {
	fmt.Fprintf(w, "%s -> %s (%d of %d records kept", input, res.OutputPath, res.RecordsKept, res.RecordsLoaded)
	if res.DateParseFailures > 0 {
		fmt.Fprintf(w, ", %d unparseable dates", res.DateParseFailures)
	}
	fmt.Fprintln(w, ")")
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func joinQuoted[T ~string](values []T) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", string(v))
	}
	return out
}
