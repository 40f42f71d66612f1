package main

import (
	"github.com/spf13/cobra"

	"xcri-import/internal/config"
)

type options struct {
	configPath string
	index      string
	solrURL    string
	solrCore   string
	sqlitePath string
	out        string
	upload     bool
	rejects    string
	workers    int
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "xcri-import [feed...]",
		Short: "Import XCRI-CAP course feeds into a search index",
		Long: `Parses each XCRI-CAP catalog, flattens every presentation into a record,
submits the records to the index and commits.

A feed is a local path, "-" for stdin, or a file://, http(s):// or sftp:// URL.
Paths ending in .br are brotli compressed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd, cfg, opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (TOML)")
	flags.StringVar(&opts.index, "index", "", `Index backend: "solr" or "sqlite"`)
	flags.StringVar(&opts.solrURL, "solr-url", "", "Solr base URL, e.g. http://localhost:8983/solr")
	flags.StringVar(&opts.solrCore, "solr-core", "", "Solr core name")
	flags.StringVar(&opts.sqlitePath, "sqlite", "", "SQLite database path for the sqlite backend")
	flags.StringVar(&opts.out, "out", "", "Also write the records as a Solr XML update file (.br to compress)")
	flags.BoolVar(&opts.upload, "upload", false, "Upload the --out file to SFTP after writing it")
	flags.StringVar(&opts.rejects, "rejects", "", `Write rejected presentations as CSV ("-" for stdout)`)
	flags.IntVar(&opts.workers, "workers", 0, "Feeds imported in parallel")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	return rootCmd
}

// loadConfig applies file, then env, then explicitly set flags.
func loadConfig(cmd *cobra.Command, opts options) (config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("index") {
		cfg.IndexBackend = opts.index
	}
	if flags.Changed("solr-url") {
		cfg.SolrURL = opts.solrURL
	}
	if flags.Changed("solr-core") {
		cfg.SolrCore = opts.solrCore
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath = opts.sqlitePath
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	return cfg, nil
}
