package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cmake-clean/internal/database"
	"cmake-clean/internal/exitcodes"
)

type options struct {
	dbPath     string
	recent     int
	root       string
	runID      string
	stats      bool
	days       int
	jsonOutput bool
}

var (
	errNoDB    = errors.New("--db is required")
	errNoQuery = errors.New("choose one of --recent, --root, --run or --stats")
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)

	usage := false
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		usage = true
		return err
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "cmake-clean-history: %v\n", err)
		if usage || errors.Is(err, errNoDB) || errors.Is(err, errNoQuery) {
			fmt.Fprint(stderr, cmd.UsageString())
			return exitcodes.Usage
		}
		return exitcodes.RuntimeError
	}
	return exitcodes.Success
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cmake-clean-history --db FILE [--recent N | --root DIR | --run ID | --stats]",
		Short: "Query the cmake-clean removal history",
		Example: `  cmake-clean-history --db history.db --recent 10      # 10 most recent removals
  cmake-clean-history --db history.db --root /src/build  # removals under one target
  cmake-clean-history --db history.db --stats --days 7   # weekly statistics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return query(opts, stdout)
		},
	}
	cmd.SetOut(stdout)

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "path to the history database")
	f.IntVar(&opts.recent, "recent", 0, "show N most recent removals")
	f.StringVar(&opts.root, "root", "", "show removals for one target directory")
	f.StringVar(&opts.runID, "run", "", "show removals of one run")
	f.BoolVar(&opts.stats, "stats", false, "show removal statistics")
	f.IntVar(&opts.days, "days", 30, "number of days for statistics")
	f.BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func query(opts *options, w io.Writer) error {
	if opts.dbPath == "" {
		return errNoDB
	}
	if !opts.stats && opts.recent <= 0 && opts.root == "" && opts.runID == "" {
		return errNoQuery
	}

	// Opening creates the file, so a typo would silently query an empty database
	if _, err := os.Stat(opts.dbPath); err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	db, err := database.NewHistoryDB(opts.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.stats {
		stats, err := db.Stats(opts.days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(w, stats)
		}
		printStats(w, stats, opts.days)
		return nil
	}

	var records []database.RemovalRecord
	switch {
	case opts.recent > 0:
		records, err = db.RecentRemovals(opts.recent)
	case opts.root != "":
		records, err = db.RemovalsByRoot(opts.root)
	default:
		records, err = db.RemovalsByRun(opts.runID)
	}
	if err != nil {
		return fmt.Errorf("query removals: %w", err)
	}

	if opts.jsonOutput {
		if records == nil {
			records = []database.RemovalRecord{}
		}
		return writeJSON(w, records)
	}
	printRecords(w, records)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, stats *database.RemovalStats, days int) {
	fmt.Fprintf(w, "Removal Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Runs:             %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "Total Removals:   %d\n", stats.TotalRemovals)
	fmt.Fprintf(w, "Dry-run Entries:  %d\n", stats.TotalDryRun)
	fmt.Fprintf(w, "Total Errors:     %d\n", stats.TotalErrors)

	printCounts(w, "By Pass:", stats.ByPass)
	printCounts(w, "By Root:", stats.ByRoot)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-15s %d\n", k, counts[k])
	}
}

func printRecords(out io.Writer, records []database.RemovalRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tPass\tType\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t----\t----")

	for _, r := range records {
		path := r.Path
		if r.ErrorMessage != "" {
			path = path + ": " + r.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.Pass, r.ObjectType, path)
	}
	_ = w.Flush()
}
