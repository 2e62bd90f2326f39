package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/karim-alweheshy/moaweb/authmodule"
	"github.com/karim-alweheshy/moaweb/config"
	"github.com/karim-alweheshy/moaweb/dispatch"
	"github.com/karim-alweheshy/moaweb/transport"
)

var (
	cfgFile    string
	cfg        *config.Config
	logger     zerolog.Logger
	tr         *transport.Transport
	dispatcher *dispatch.Dispatcher
	drops      chan struct{}

	version   = "dev"
	buildTime = "unknown"

	// Command flags
	filterExpr string
	preset     string
	reqMethod  string
)

// SetVersion records build metadata injected by the linker.
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "moaweb",
	Short: "A typed request dispatcher with transparent re-authentication",
	Long: `moaweb dispatches typed requests either to in-process capability modules
or to a configured remote host, re-authenticating transparently on 401
responses and retrying the original request once.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initializeApp initializes the configuration, transport, and dispatcher
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	tr, err = transport.New(cfg.Server.URL, logger, transport.WithTimeout(cfg.Server.Timeout))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	authFactory, err := authmodule.NewFactory(cfg.Auth.Endpoint, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}

	policy, err := dispatch.ParsePolicy(cfg.Dispatch.Fanout)
	if err != nil {
		return fmt.Errorf("invalid dispatch config: %w", err)
	}

	drops = make(chan struct{}, 1)
	opts := []dispatch.Option{
		dispatch.WithPolicy(policy),
		dispatch.WithHooks(presentSurface, dismissSurface),
		dispatch.WithCredentials(func() (string, string) {
			return cfg.Auth.Username, cfg.Auth.Password
		}),
		dispatch.WithDropHook(func() {
			select {
			case drops <- struct{}{}:
			default:
			}
		}),
	}
	if cfg.Dispatch.CoalesceReauth {
		opts = append(opts, dispatch.WithCoalescedReauth())
	}

	dispatcher = dispatch.New([]dispatch.Factory{authFactory}, tr, logger, opts...)
	return nil
}

// presentSurface stands in for the host application's UI hook. The CLI has
// no surface to show, so it only announces the request.
func presentSurface(surface any) {
	logger.Info().Type("surface", surface).Msg("Presenting surface")
}

func dismissSurface(surface any) {
	logger.Info().Type("surface", surface).Msg("Dismissing surface")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format; only color when stderr is a terminal
	color := cfg.Color && isatty.IsTerminal(os.Stderr.Fd())
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// versionCmd prints build metadata
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config needed to print the version.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("moaweb %s (built %s)\n", version, buildTime)
	},
}
