package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/octolist/config"
	"github.com/s0up4200/octolist/filter"
	"github.com/s0up4200/octolist/octopus"
)

// skipInit marks commands that run without configuration or a client.
const skipInit = "octolist/skip-init"

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
	client  octopus.API
	filters *filter.Manager

	// Shared flags
	listFlag string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "octolist",
	Short: "Manage EmailOctopus mailing lists and contacts",
	Long: `octolist manages mailing lists and their contacts through the EmailOctopus API.

It can create and remove lists, subscribe and unsubscribe addresses, import
address files in bulk and audit contacts with filter expressions.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// initializeApp loads configuration and builds the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipInit] == "true" {
		logger = setupLogger(config.LoggingConfig{Level: "info", Format: "console", Color: true}, os.Stderr)
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging, os.Stderr)

	client, err = octopus.NewClient(cfg.Octopus.APIKey, logger,
		octopus.WithBaseURL(cfg.Octopus.URL),
		octopus.WithTimeout(cfg.Octopus.Timeout),
		octopus.WithUserAgent(userAgent()),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	filters = filter.NewManager(
		filter.WithCompiler(filter.NewExprCompiler(filter.WithCache(cfg.Filter.CacheSize))),
		filter.WithEvaluator(filter.NewConcurrentEvaluator(filter.WithWorkers(cfg.Filter.Workers))),
	)
	if err := filters.RegisterFilters(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger. Colour is only used when out
// is a terminal.
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(out),
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func userAgent() string {
	ua := cfg.Octopus.UserAgent
	if ua == "" {
		ua = "octolist"
	}
	return ua + "/" + version
}

// addListFlag registers --list on cmd
func addListFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listFlag, "list", "l", "", "mailing list id (default is octopus.default_list)")
}

// resolveList returns the list from --list or the configured default
func resolveList() (octopus.ListID, error) {
	raw := listFlag
	if raw == "" && cfg != nil {
		raw = cfg.Octopus.DefaultList
	}
	if raw == "" {
		return octopus.ListID{}, fmt.Errorf("no list specified: use --list or set octopus.default_list")
	}
	return octopus.ParseListID(raw)
}

// parseEmails converts command arguments to addresses, failing on the first
// invalid one
func parseEmails(args []string) ([]octopus.EmailAddress, error) {
	emails := make([]octopus.EmailAddress, 0, len(args))
	for _, arg := range args {
		email, err := octopus.ParseEmailAddress(arg)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, nil
}
