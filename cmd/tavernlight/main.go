// Tavernlight Core - tabletop session ambience
//
// This is the entry point for the tavernlight binary. The serve command runs
// the session service: audio mixer, lighting adapter, scene and trigger
// orchestration, REST and WebSocket API, MQTT remote control and telemetry.
// The remaining commands are offline tools for the game master.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/tavernlight-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const (
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors caused by bad command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	noColor    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(exitUsage)
		}
		os.Exit(exitFailure)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "tavernlight",
		Short:         "Scene, sound and light orchestration for tabletop sessions",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default $TAVERNLIGHT_CONFIG or "+defaultConfigPath+")")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newProbeCmd(opts),
		newLibraryCmd(opts),
	)
	return root
}

// getConfigPath returns the configuration file path.
// The --config flag wins, then TAVERNLIGHT_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("TAVERNLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
