package cli

import "flag"

const defaultConfigPath = "relink.toml"

type cliOptions struct {
	configPath     string
	mapPath        string
	check          bool
	watch          bool
	dryRun         bool
	strict         bool
	history        bool
	since          string
	historyWindow  string
	historyTSV     string
	historyJSON    string
	reportJSON     string
	reportTSV      string
	reportMarkdown string
	verbose        bool
	version        bool
	args           []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("relink", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.mapPath, "map", "", "Rename map file (YAML or JSON), relative to the working directory")
	fs.BoolVar(&opts.check, "check", false, "Check links in the current tree without rewriting")
	fs.BoolVar(&opts.watch, "watch", false, "Re-check links whenever the tree changes (never rewrites)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Resolve and report without writing files")
	fs.BoolVar(&opts.strict, "strict", false, "Exit non-zero when links are broken or unresolved")
	fs.BoolVar(&opts.history, "history", false, "Record runs in the history database and print trends")
	fs.StringVar(&opts.since, "since", "", "Include historical runs at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyWindow, "history-window", "24h", "Moving-window duration for trend summaries (requires --history)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write trend report TSV to this path (requires --history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write trend report JSON to this path (requires --history)")
	fs.StringVar(&opts.reportJSON, "report-json", "", "Write the run summary as JSON to this path")
	fs.StringVar(&opts.reportTSV, "report-tsv", "", "Write unresolved and broken links as TSV to this path")
	fs.StringVar(&opts.reportMarkdown, "report-md", "", "Write the run summary as markdown to this path")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
