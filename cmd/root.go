package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"httpconnect/internal/banner"
	"httpconnect/internal/cli"
	"httpconnect/internal/logging"
	"httpconnect/internal/report"
	"httpconnect/internal/runner"
	"httpconnect/internal/storage"
	"httpconnect/internal/tui/app"
)

const envPrefix = "HTTPCONNECT"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "httpconnect",
	Short: "httpconnect - two-phase HTTP agent benchmark",
	Long: `
httpconnect measures how fast a gateway hands out node ports and how fast
the nodes answer, for a sweep of concurrent agent counts.

Every agent asks the gateway (GET /api/1.0/) which port to use, then posts
to /api/1.0/nodes on that port. One semicolon separated row per agent
count is written to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, viper.GetString("log-level"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper(viper.GetViper())
		if err := cfg.Validate(); err != nil {
			return err
		}

		opts := cli.Options{
			Stdout:    cmd.OutOrStdout(),
			Stderr:    cmd.ErrOrStderr(),
			Progress:  viper.GetBool("progress"),
			OutPrefix: viper.GetString("out"),
			Logger:    slog.Default(),
		}
		if !viper.GetBool("no-history") {
			store, err := openStore()
			if err != nil {
				opts.Logger.Warn("history disabled", "error", err)
			} else {
				defer store.Close()
				opts.Store = store
			}
		}

		if viper.GetBool("tui") {
			return runTUI(cmd.Context(), cfg, opts)
		}
		return cli.Start(cmd.Context(), cfg, opts)
	},
}

// Execute runs the root command and exits non-zero on a fatal error.
func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("httpconnect failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.httpconnect.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("history-db", "", "History database (default is $HOME/.httpconnect/history.db)")

	addSweepFlags(rootCmd)

	viper.BindPFlags(rootCmd.PersistentFlags())
	viper.BindPFlags(rootCmd.Flags())
}

func addSweepFlags(cmd *cobra.Command) {
	def := runner.DefaultConfig()
	f := cmd.Flags()

	f.String("host", def.Host, "Gateway host")
	f.IntP("gateway-port", "p", def.GatewayPort, "Gateway port")
	f.Int("from", def.From, "First agent count of the sweep")
	f.Int("to", def.To, "Last agent count of the sweep (inclusive)")
	f.Int("step", def.Step, "Agent count increment")
	f.IntP("samples", "s", def.Samples, "Samples per agent count")
	f.Int("server-sockets", def.ServerSockets, "Server socket count reported in every row")

	f.Int("max-attempts", 0, "Attempts per HTTP phase before giving up (0 retries forever)")
	f.Duration("backoff", 0, "Initial delay between retries, doubled per attempt (0 retries immediately)")
	f.Duration("request-timeout", 0, "Per request timeout (0 waits forever)")

	f.StringP("out", "o", "", "Output filename prefix for CSV/JSON reports")
	f.Bool("tui", false, "Show the interactive dashboard while the sweep runs")
	f.Bool("progress", true, "Print a progress line to stderr")
	f.Bool("no-history", false, "Do not record the sweep in the history database")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".httpconnect")
		}
	}
	configureEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "⚠️  config: %v\n", err)
		}
	}
}

// configureEnv maps keys like gateway-port to HTTPCONNECT_GATEWAY_PORT.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func configFromViper(v *viper.Viper) runner.Config {
	return runner.Config{
		Host:           v.GetString("host"),
		GatewayPort:    v.GetInt("gateway-port"),
		From:           v.GetInt("from"),
		To:             v.GetInt("to"),
		Step:           v.GetInt("step"),
		Samples:        v.GetInt("samples"),
		ServerSockets:  v.GetInt("server-sockets"),
		MaxAttempts:    v.GetInt("max-attempts"),
		Backoff:        v.GetDuration("backoff"),
		RequestTimeout: v.GetDuration("request-timeout"),
	}
}

func openStore() (*storage.Store, error) {
	path := viper.GetString("history-db")
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}

// runTUI drives the sweep from the dashboard. Logs are dropped while the
// alternate screen is active; the report rows are printed once it closes.
func runTUI(ctx context.Context, cfg runner.Config, opts cli.Options) error {
	updates := make(runner.UpdateChan, 100)
	r := runner.NewRunner(cfg, updates)
	r.Logger = logging.New(io.Discard, "error")

	rec := storage.NewRecord(cfg)

	p := tea.NewProgram(app.NewModel(ctx, r, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}

	results := r.Results()
	runErr := context.Canceled
	if m, ok := final.(app.Model); ok && m.Done {
		results = m.Final.Results
		runErr = m.Final.Err
	}

	w := report.NewWriter(opts.Stdout)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.WriteLevel(res); err != nil {
			return err
		}
	}

	rec.Finish(results, runErr)
	cli.Persist(opts, rec)
	return runErr
}
