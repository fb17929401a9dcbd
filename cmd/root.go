package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"echoburst/internal/banner"
	"echoburst/internal/cli"
	"echoburst/internal/logger"
	"echoburst/internal/runner"
	"echoburst/internal/storage"
	"echoburst/internal/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "echoburst",
	Short: "echoburst - Person API Load Generator",
	Long: `
echoburst fires bursts of concurrent add-person requests at one backend
variant (in-memory, pg-sql, my-sql, redis), checks that every response
echoes the submitted email and reports the failures.

Requests go out in fixed-size batches; a batch must drain before the next
one starts.`,
	SilenceUsage: true,
	RunE:         runLoad,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(targetsCmd, historyCmd, serveCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.echoburst.yaml)")
	pf.Bool("debug", false, "Development logging at debug level")
	pf.String("history-db", "", "Run history database (default is $HOME/.echoburst/history.db)")
	pf.String("base-url", runner.DefaultBaseURL, "Base URL the variant path is appended to")

	f := rootCmd.Flags()
	f.StringP("target", "t", string(runner.TargetInMemory), "Backend variant: in-memory, pg-sql, my-sql, redis")
	f.StringP("url", "u", "", "Full endpoint URL (overrides --target and --base-url)")
	f.IntP("pool-size", "p", runner.DefaultPoolSize, "Number of synthetic records to generate")
	f.IntP("requests", "n", runner.DefaultTotalRequests, "Total requests to send")
	f.IntP("batch-size", "b", runner.DefaultBatchSize, "Concurrent requests per batch")
	f.Duration("timeout", runner.DefaultDispatchTimeout, "Per-request timeout")
	f.Duration("batch-pause", runner.DefaultBatchPause, "Pause between batches")
	f.Duration("generate-delay", 0, "Delay per generated record")
	f.Bool("verify", true, "Check that each response echoes the submitted email")
	f.Bool("tui", false, "Show the live terminal UI")
	f.StringP("out", "o", "", "Output filename prefix for CSV and summary reports")
	f.Bool("history", true, "Save the report to run history")

	viper.BindPFlags(rootCmd.PersistentFlags())
	viper.BindPFlags(rootCmd.Flags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".echoburst")
		}
	}
	viper.SetEnvPrefix("ECHOBURST")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// configFromViper assembles the run config from flags, env and config file.
func configFromViper(v *viper.Viper) (runner.Config, error) {
	cfg := runner.DefaultConfig()

	t, err := runner.ParseTarget(v.GetString("target"))
	if err != nil {
		return cfg, err
	}
	cfg.Target = t
	cfg.URL = v.GetString("url")
	if base := v.GetString("base-url"); cfg.URL == "" && base != "" && base != runner.DefaultBaseURL {
		cfg.URL = t.URL(base)
	}
	cfg.PoolSize = v.GetInt("pool-size")
	cfg.TotalRequests = v.GetInt("requests")
	cfg.BatchSize = v.GetInt("batch-size")
	cfg.DispatchTimeout = v.GetDuration("timeout")
	cfg.BatchPause = v.GetDuration("batch-pause")
	cfg.GenerateDelay = v.GetDuration("generate-delay")
	cfg.VerifyResponse = v.GetBool("verify")
	cfg.OutPrefix = v.GetString("out")

	return cfg, cfg.Validate()
}

func newLogger() *zap.Logger {
	log, err := logger.NewLogger(viper.GetBool("debug"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}

func openHistory() (*storage.Store, error) {
	path := viper.GetString("history-db")
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := configFromViper(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var hist *storage.Store
	if viper.GetBool("history") {
		if hist, err = openHistory(); err != nil {
			log.Warn("run history disabled", zap.Error(err))
			hist = nil
		} else {
			defer hist.Close()
		}
	}

	out := cmd.OutOrStdout()
	updates := make(runner.StatsUpdateChan, 100)
	r := runner.NewRunner(cfg, updates, log)

	var report *runner.Report
	if viper.GetBool("tui") {
		report, err = tui.Run(ctx, r, updates)
	} else {
		report, err = cli.Start(ctx, out, r, updates)
	}
	if report != nil {
		results := r.ResultsCopy()
		cli.PrintSummary(out, report, results)
		cli.Finalize(out, report, results, hist, log)
	}
	return err
}
