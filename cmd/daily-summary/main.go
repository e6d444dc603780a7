package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dailysummary/internal/config"
	"dailysummary/internal/pipeline"
	"dailysummary/internal/sink"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configPath string
	dataDir    string
	csvPath    string
	sqlitePath string

	logger *zap.Logger
)

var newLogger = func(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

var rootCmd = &cobra.Command{
	Use:   "daily-summary",
	Short: "Consolidate daily operational reports into one store summary",
	Long: `daily-summary reads the day's operational exports (orders, sales, delivery,
truck arrival, picking and the migrated-societies reference), aggregates each
per (date, store), joins them onto the orders report and writes a single
summary table.

Run without a subcommand to consolidate the reports in --data-dir.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	Args: cobra.NoArgs,
	RunE: runSummary,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the daily summary from the reports in --data-dir",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var diffCmd = &cobra.Command{
	Use:   "diff <reference.csv> <candidate.csv>",
	Short: "Compare two summary files row by row on (Date, Store Name)",
	Long: `Aligns two summary CSVs on their Date and Store Name columns and reports
changed cells, rows present in only one file and column differences. Numeric
cells compare by value, so "1.50" equals "1.5". Exits 1 when the files differ.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := diffFiles(args[0], args[1])
		if err != nil {
			return err
		}
		printDiff(cmd.OutOrStdout(), d)
		if !d.Identical() {
			return errFilesDiffer
		}
		return nil
	},
}

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the built-in configuration to --config for editing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.Defaults().Save(configPath); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "daily-summary.yaml", "config file (defaults apply when missing)")
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the day's report CSVs (overrides data_dir)")
		cmd.Flags().StringVarP(&csvPath, "out", "o", "", "summary CSV path (overrides output.csv)")
		cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also write the summary to this SQLite file")
	}
	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(runCmd, diffCmd, initConfigCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx); err != nil {
		if !errors.Is(err, errFilesDiffer) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// execute runs the command tree and then flushes the logger. The flush lives
// here because cobra skips post-run hooks when a command fails.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	return err
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if csvPath != "" {
		cfg.Output.CSV = csvPath
	}
	if sqlitePath != "" {
		cfg.Output.SQL.Driver = "sqlite"
		cfg.Output.SQL.DSN = sqlitePath
	}
	return consolidate(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// consolidate runs the pipeline and writes every configured output. Nothing
// is written when the run fails.
func consolidate(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	p := pipeline.New(cfg, pipeline.DirLoader{Dir: cfg.DataDir, Config: cfg}, log)
	summary, rep, err := p.Run(ctx)
	if err != nil {
		var mpe *pipeline.MissingPrimarySourceError
		if errors.As(err, &mpe) {
			log.Error("primary source missing, nothing written", zap.String("source", mpe.Source), zap.String("reason", mpe.Reason))
		}
		return err
	}
	log = log.With(zap.String("run_id", rep.RunID))

	if err := sink.WriteCSV(cfg.Output.CSV, summary); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	log.Info("summary written", zap.String("path", cfg.Output.CSV), zap.Int("rows", rep.Rows))

	if cfg.Output.SQL.DSN != "" {
		w, err := sink.OpenSQL(cfg.Output.SQL)
		if err != nil {
			return fmt.Errorf("sql sink: %w", err)
		}
		err = w.Write(ctx, summary)
		w.Close()
		if err != nil {
			return fmt.Errorf("write %s: %w", cfg.Output.SQL.Table, err)
		}
		log.Info("summary table replaced", zap.String("driver", w.Driver()), zap.String("table", cfg.Output.SQL.Table))
	}

	if len(cfg.Output.Kafka.Brokers) > 0 {
		pub, err := sink.NewKafkaPublisher(cfg.Output.Kafka)
		if err != nil {
			return fmt.Errorf("kafka sink: %w", err)
		}
		err = pub.Publish(ctx, rep.RunID, summary)
		pub.Close()
		if err != nil {
			return err
		}
		log.Info("summary published", zap.String("topic", cfg.Output.Kafka.Topic), zap.Int("messages", rep.Rows))
	}

	printReport(out, cfg, rep, len(summary.Columns)+2)
	return nil
}

func printReport(w io.Writer, cfg *config.Config, rep pipeline.Report, columns int) {
	fmt.Fprintf(w, "Run: %s\n", rep.RunID)
	for _, s := range rep.Sources {
		if s.Joined {
			fmt.Fprintf(w, "Source %s: %s (%d records, %d groups, %d dropped)\n", s.Source, s.Path, s.Records, s.Groups, s.Dropped)
			continue
		}
		fmt.Fprintf(w, "Source %s: skipped (%s)\n", s.Source, s.Skipped)
	}
	fmt.Fprintf(w, "Rows written: %d\n", rep.Rows)
	fmt.Fprintf(w, "Columns written: %d\n", columns)
	fmt.Fprintf(w, "CSV: %s\n", cfg.Output.CSV)
	if sc := cfg.Output.SQL; sc.DSN != "" {
		driver := sc.Driver
		if driver == "" {
			driver = "sqlite"
		}
		fmt.Fprintf(w, "SQL: %s table %s\n", driver, sc.Table)
	}
	if len(cfg.Output.Kafka.Brokers) > 0 {
		fmt.Fprintf(w, "Kafka: %s\n", cfg.Output.Kafka.Topic)
	}
}
