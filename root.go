package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharepoint-go/internal/config"
	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// version is set at build time via ldflags.
var version = "dev"

// graphBaseURL is the Microsoft Graph endpoint. Tests point it at an
// httptest server.
var graphBaseURL = graph.DefaultBaseURL

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath   string
	flagHost         string
	flagSite         string
	flagTenantID     string
	flagClientID     string
	flagClientSecret string
	flagDriveID      string
	flagMaxRetries   int
	flagJSON         bool
	flagVerbose      bool
	flagQuiet        bool
)

// CLIFlags are the output-shaping global flags.
type CLIFlags struct {
	JSON    bool
	Verbose bool
	Quiet   bool
}

// CLIContext carries everything a subcommand needs after the root pre-run:
// the resolved configuration, a logger tagged with the run id, and the
// output streams.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger

	Out io.Writer
	Err io.Writer

	// Interactive is true when progress can be redrawn in place.
	Interactive bool

	// GraphURL is the API base URL.
	GraphURL string
}

type cliContextKey struct{}

// withCLIContext returns a child context carrying cc.
func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext installed by the root pre-run. A
// missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		panic("BUG: CLIContext not set; command ran without the root pre-run")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sharepoint-go",
		Short: "SharePoint document library transfer tool",
		Long: `Upload files to and download folders from a SharePoint Online document
library through Microsoft Graph. Large files go through resumable upload
sessions in aligned chunks.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := loadCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file path")
	pf.StringVar(&flagHost, "host", "", "SharePoint host name (e.g., contoso.sharepoint.com)")
	pf.StringVar(&flagSite, "site", "", "site name")
	pf.StringVar(&flagTenantID, "tenant-id", "", "Azure AD tenant ID")
	pf.StringVar(&flagClientID, "client-id", "", "app registration client ID")
	pf.StringVar(&flagClientSecret, "client-secret", "", "app registration client secret (prefer "+config.EnvClientSecret+")")
	pf.StringVar(&flagDriveID, "drive-id", "", "document library ID (default: the site's default library)")
	pf.IntVar(&flagMaxRetries, "max-retries", 0, "retry budget for metadata requests (0-10)")
	pf.BoolVar(&flagJSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newSessionsCmd())

	return cmd
}

// cliOverrides collects the flags the user explicitly set. Unset flags stay
// nil so they do not mask the config file or environment.
func cliOverrides(cmd *cobra.Command) config.CLIOverrides {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	flags := cmd.Flags()

	strFlags := []struct {
		name string
		val  *string
		dst  **string
	}{
		{"host", &flagHost, &cli.HostName},
		{"site", &flagSite, &cli.SiteName},
		{"tenant-id", &flagTenantID, &cli.TenantID},
		{"client-id", &flagClientID, &cli.ClientID},
		{"client-secret", &flagClientSecret, &cli.ClientSecret},
		{"drive-id", &flagDriveID, &cli.DriveID},
	}

	for _, f := range strFlags {
		if flags.Changed(f.name) {
			*f.dst = f.val
		}
	}

	if flags.Changed("max-retries") {
		cli.MaxRetries = &flagMaxRetries
	}

	return cli
}

// loadCLIContext resolves the effective configuration from the four-layer
// override chain and builds the logger every subcommand shares.
func loadCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	resolved, err := config.Resolve(config.ReadEnvOverrides(), cliOverrides(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := CLIFlags{JSON: flagJSON, Verbose: flagVerbose, Quiet: flagQuiet}

	return &CLIContext{
		Flags:       flags,
		Cfg:         resolved,
		Logger:      buildLogger(resolved, flags).With(slog.String("run_id", uuid.NewString())),
		Out:         cmd.OutOrStdout(),
		Err:         cmd.ErrOrStderr(),
		Interactive: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		GraphURL:    graphBaseURL,
	}, nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger(resolved *config.Resolved, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo

	if resolved != nil {
		switch resolved.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
