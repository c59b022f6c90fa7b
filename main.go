package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/mmap"

	"github.com/ossyrian/ba2extract/internal/ba2"
	"github.com/ossyrian/ba2extract/internal/config"
	"github.com/ossyrian/ba2extract/internal/extract"
	"github.com/ossyrian/ba2extract/internal/logging"
	"github.com/ossyrian/ba2extract/internal/parser"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:          "ba2extract",
	Short:        "Extract files and textures from Bethesda BA2 archives",
	RunE:         runExtract,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files stored in a BA2 archive",
	RunE:  runList,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.PersistentFlags().StringP("input", "i", "", "path to .ba2 archive (required)")
	rootCmd.Flags().StringP("output", "o", "", "directory to extract files to")
	rootCmd.Flags().StringP("preview-dir", "p", "", "directory to write PNG previews of textures to")
	rootCmd.MarkPersistentFlagRequired("input")

	// extraction settings
	rootCmd.Flags().Int("workers", 0, "number of records extracted in parallel (0 = number of CPUs)")
	rootCmd.PersistentFlags().Bool("strict-formats", false, "fail on textures with unsupported pixel formats instead of skipping them")
	rootCmd.Flags().Bool("dry-run", false, "extract without writing output (validation)")

	// other opts
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")

	viper.BindPFlag("input", rootCmd.PersistentFlags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("preview_dir", rootCmd.Flags().Lookup("preview-dir"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("strict_formats", rootCmd.PersistentFlags().Lookup("strict-formats"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))

	rootCmd.AddCommand(listCmd)
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ba2extract"))
		}
		viper.AddConfigPath("/etc/ba2extract")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("BA2EXTRACT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals the merged flag, env and file settings and sets up logging
func loadConfig() (*config.Config, func() error, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not set up logging: %w", err)
	}
	return cfg, closeLog, nil
}

// openArchive maps the input file and parses its record table.
// The returned closer unmaps the file.
func openArchive(cfg *config.Config) (*parser.Archive, io.Closer, error) {
	m, err := mmap.Open(cfg.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	ok, err := parser.Detect(io.NewSectionReader(m, 0, int64(m.Len())))
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s", ba2.ErrFormatMismatch, cfg.InputFile)
	}
	if err != nil {
		m.Close()
		return nil, nil, err
	}

	a, err := parser.Open(m, int64(m.Len()), parser.Options{
		Name:          filepath.Base(cfg.InputFile),
		StrictFormats: cfg.StrictFormats,
	})
	if err != nil {
		m.Close()
		return nil, nil, fmt.Errorf("failed to parse %s: %w", cfg.InputFile, err)
	}
	return a, m, nil
}

// runExtract extracts every file of the input archive
func runExtract(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.OutputDir == "" && !cfg.DryRun {
		return errors.New("an output directory is required unless --dry-run is set")
	}

	opts := extract.Options{
		Workers: cfg.Workers,
		DryRun:  cfg.DryRun,
	}
	if cfg.OutputDir != "" {
		if opts.OutputDir, err = filepath.Abs(cfg.OutputDir); err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
	}
	if cfg.PreviewDir != "" {
		if opts.PreviewDir, err = filepath.Abs(cfg.PreviewDir); err != nil {
			return fmt.Errorf("invalid preview directory: %w", err)
		}
	}

	slog.Info("extracting archive", "input", cfg.InputFile, "output", opts.OutputDir)

	a, closer, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	summary, err := extract.Run(ctx, a, afero.NewOsFs(), opts)
	if err != nil {
		slog.Error(fmt.Sprintf("error extracting %s", cfg.InputFile), "error", err)
		return err
	}

	slog.Info("done",
		"written", summary.Written,
		"skipped", summary.Skipped,
		"shadowed", summary.Shadowed,
		"previews", summary.Previews,
		"bytes", summary.Bytes,
		"dry_run", cfg.DryRun,
	)
	return nil
}

// runList prints one line per record: path, stored size and extension
func runList(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	a, closer, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	names, err := a.Names()
	if err != nil {
		return fmt.Errorf("failed to read names: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, name := range names {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, a.StoredSize(i), recordExtension(a, i))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	total := lo.SumBy(lo.Range(a.Len()), func(i int) uint64 { return a.StoredSize(i) })
	slog.Info("listed archive", "records", a.Len(), "type", a.Kind(), "stored_bytes", total)
	return nil
}

func recordExtension(a *parser.Archive, i int) string {
	if rec, ok := a.FileRecord(i); ok {
		return rec.Extension()
	}
	if rec, ok := a.TextureRecord(i); ok {
		return rec.Header.Extension()
	}
	return ""
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
