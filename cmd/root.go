package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentinel-cli/internal/api"
	"sentinel-cli/internal/config"
	"sentinel-cli/internal/report"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	jsonOutput bool
	sections   report.Sections
	noColor    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel <domain>",
	Short: "Sentinel CLI - domain intelligence lookups from your terminal",
	Long: `Sentinel CLI looks up a domain in the Sentinel domain-intelligence API and prints
its classification, DNS records, GeoIP snapshot, TLS certificate and WHOIS data as tables.

Pass one or more section flags to limit the output; with none, every section is shown.
Use --json to dump the full API response instead.`,
	Example: `  sentinel example.com
  sentinel example.com --dns --whois
  sentinel example.com --json`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		domain := args[0]
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		token := config.GetToken()
		if token == "" {
			fmt.Fprintln(errOut, "Warning: No authorization token configured. The API will likely reject the request.")
			fmt.Fprintln(errOut, "Configure one using: sentinel config set-token <TOKEN> (or set SENTINEL_TOKEN)")
			fmt.Fprintln(errOut, "")
		}

		logger := newLogger(errOut, verbose)
		client := api.NewClient(config.GetBaseURL(), token,
			api.WithTimeout(config.GetTimeout()),
			api.WithLogger(logger))

		renderer := report.NewRenderer(out, errOut, useColor(out))
		renderer.Width = terminalWidth(out)

		req := report.Request{
			Domain:     domain,
			Sections:   sections,
			Mode:       report.ModeTable,
			Retries:    config.GetRetries(),
			RetryDelay: config.GetRetryDelay(),
		}
		if jsonOutput {
			req.Mode = report.ModeJSON
		}

		outcome, err := report.NewGenerator(client, renderer, logger).Run(cmd.Context(), req)
		logger.Debug("lookup finished", "domain", domain, "state", outcome.State, "attempts", outcome.Attempts)
		if err != nil {
			renderer.Error(domain, err)
		}
	},
}

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
	cobra.OnInitialize(config.InitConfig, bindFlags)

	flags := rootCmd.Flags()
	flags.BoolVar(&jsonOutput, "json", false, "Print the raw API response as JSON (ignores section flags)")
	flags.BoolVar(&sections.Categories, "categories", false, "Show domain categories")
	flags.BoolVar(&sections.DNS, "dns", false, "Show DNS records")
	flags.BoolVar(&sections.GeoIP, "geoip", false, "Show GeoIP snapshot")
	flags.BoolVar(&sections.TLS, "tls", false, "Show TLS certificate summary")
	flags.BoolVar(&sections.Whois, "whois", false, "Show WHOIS data")
	flags.Int("retries", config.DefaultRetries, "Attempts before giving up on sections that failed to load")
	flags.Float64("retry-delay", config.DefaultRetryDelay, "Seconds to wait between attempts")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log request details to stderr")
}

// bindFlags lets --retries and --retry-delay override the config file and environment.
func bindFlags() {
	_ = viper.BindPFlag(config.Retries, rootCmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag(config.RetryDelay, rootCmd.Flags().Lookup("retry-delay"))
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
