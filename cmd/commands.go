package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"echoburst/internal/cli"
	"echoburst/internal/runner"
	"echoburst/internal/storage"
	"echoburst/internal/target"
)

// --- Targets Subcommand ---
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List backend variants and their endpoints",
	Run: func(cmd *cobra.Command, args []string) {
		printTargets(cmd.OutOrStdout(), viper.GetString("base-url"))
	},
}

func printTargets(w io.Writer, base string) {
	if base == "" {
		base = runner.DefaultBaseURL
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tTEST NAME\tURL")
	for _, t := range runner.Targets {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t, t.TestName(), t.URL(base))
	}
	tw.Flush()
}

// --- History Subcommand ---
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory()
		if err != nil {
			return err
		}
		defer hist.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		items, err := hist.List(limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), items)
		return nil
	},
}

func printHistory(w io.Writer, items []storage.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEST NAME\tREQUESTS\tFAILED\tSECONDS\tURL")
	for _, it := range items {
		r := it.Report
		if r == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			it.ID,
			r.TestName, r.Requests, r.Failed, r.ElapsedSeconds(), r.URL)
	}
	tw.Flush()
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the report of one stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hist, err := openHistory()
		if err != nil {
			return err
		}
		defer hist.Close()
		return showHistory(cmd.OutOrStdout(), hist, args[0])
	},
}

func showHistory(w io.Writer, hist *storage.Store, id string) error {
	item, err := hist.Get(id)
	if err != nil {
		return err
	}
	if item.Report == nil {
		return fmt.Errorf("%w: %s has no report", storage.ErrNotFound, id)
	}
	fmt.Fprintf(w, "Run %s started %s\n", item.ID, item.Report.StartTime.Local().Format(time.DateTime))
	cli.PrintSummary(w, item.Report, nil)
	return nil
}

// --- Serve Subcommand ---
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference person API target",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		defer log.Sync()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		cfg := serverConfigFromViper(viper.GetViper())
		log.Info("starting target server",
			zap.Int("port", cfg.Port),
			zap.Bool("postgres", cfg.PostgresDSN != ""),
			zap.Bool("mysql", cfg.MySQLDSN != ""),
			zap.Bool("redis", cfg.RedisAddr != ""),
		)
		return target.Start(ctx, cfg, log)
	},
}

func serverConfigFromViper(v *viper.Viper) target.ServerConfig {
	return target.ServerConfig{
		Port:        v.GetInt("serve.port"),
		PostgresDSN: v.GetString("serve.pg-dsn"),
		MySQLDSN:    v.GetString("serve.mysql-dsn"),
		RedisAddr:   v.GetString("serve.redis-addr"),
		Faults: target.Faults{
			ErrorRate:   v.GetFloat64("serve.error-rate"),
			CorruptRate: v.GetFloat64("serve.corrupt-rate"),
			MaxJitter:   v.GetDuration("serve.max-jitter"),
		},
	}
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")

	f := serveCmd.Flags()
	f.Int("port", 5041, "Port to listen on")
	f.String("pg-dsn", "", "PostgreSQL DSN for the pg-sql variant")
	f.String("mysql-dsn", "", "MySQL DSN for the my-sql variant")
	f.String("redis-addr", "", "Redis address for the redis variant")
	f.Float64("error-rate", 0, "Fraction of requests answered with 500")
	f.Float64("corrupt-rate", 0, "Fraction of responses echoing a different email")
	f.Duration("max-jitter", 0, "Upper bound of random latency added per request")

	for _, name := range []string{"port", "pg-dsn", "mysql-dsn", "redis-addr", "error-rate", "corrupt-rate", "max-jitter"} {
		viper.BindPFlag("serve."+name, f.Lookup(name))
	}
}
