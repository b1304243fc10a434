package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"hohparser/internal/config"
	"hohparser/internal/crawler"
	"hohparser/internal/extractor"
	"hohparser/internal/logging"
	"hohparser/internal/rpc"
	"hohparser/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "hohparser",
		Short:         "Python source analyzer: symbol tables and relationship graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.ErrOrStderr())
		},
	}
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and installs the logger. Logs always go to
// stderr so stdout stays reserved for results and the MCP protocol.
func setup(w io.Writer) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	base, err := logging.New(cfg.LogLevel, cfg.Debug, w)
	if err != nil {
		return err
	}
	slog.SetDefault(base)
	logger = logging.Named(base, "hohparser")
	return nil
}

func newAnalyzer(opts ...extractor.Option) (*extractor.Analyzer, error) {
	opts = append([]extractor.Option{
		extractor.WithMaxFileSize(cfg.Analysis.MaxFileSize),
		extractor.WithLogger(logging.Named(slog.Default(), "hohparser.extractor")),
	}, opts...)
	return extractor.NewAnalyzer("python", opts...)
}

func newCrawler(a *extractor.Analyzer, workers int, ignore []string) (*crawler.Crawler, error) {
	patterns := append(append([]string(nil), cfg.Scan.Ignore...), ignore...)
	return crawler.NewCrawler(a,
		crawler.WithWorkers(workers),
		crawler.WithIgnore(patterns...),
		crawler.WithLogger(logging.Named(slog.Default(), "hohparser.crawler")),
	)
}

// initStore opens the SQLite store at path, or the configured one when
// path is empty.
func initStore(path string) (*storage.SQLiteStore, error) {
	if path == "" {
		path = cfg.Storage.Path
	}
	return storage.NewSQLiteStore(path)
}

func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "hohparser %s\n", rpc.ServerVersion)
		return err
	},
}
