package main

// skywarp resamples calibrated exposures onto sky map patches, one
// warp per visit, and keeps the results in a depot for a downstream
// coadd to pick up.

import(
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the persistent flags every subcommand shares, plus the
// logger built from them.
type app struct {
	log *slog.Logger

	configFile string
	skymapFile string
	catalogDir string
	depotDir   string
	logLevel   string
	tract      int
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "skywarp",
		Short: "Builds per-visit warped exposures for coaddition",
		Long: `Skywarp resamples calibrated exposures onto sky map patches, one warp
per visit, merging a visit's detectors under a first-good-pixel-wins
rule. Finished warps land in a depot together with their coverage
tables, ready for a downstream coadd.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = newLogger(a.logLevel)
			slog.SetDefault(a.log)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "warp config YAML (built-in defaults if empty)")
	pf.StringVar(&a.skymapFile, "skymap", "skymap.yaml", "sky map definition YAML")
	pf.StringVar(&a.catalogDir, "catalog", "catalog", "directory of exposure sidecars and pixel files")
	pf.StringVar(&a.depotDir, "depot", "warps", "depot root for finished warps")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	pf.IntVar(&a.tract, "tract", -1, "tract id (defaults to the sky map's only tract)")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newLsCmd(a))
	rootCmd.AddCommand(newCoverageCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("skywarp v0.1.0")
		},
	}
}
