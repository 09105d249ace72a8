// Lifxctl discovers and controls LIFX bulbs on the local network.
//
// Every command first listens for bulbs for --wait, then acts on the
// devices selected by --mac, --label and --group. Values within one filter
// are alternatives; different filters must all match.
//
// Usage:
//
//	lifxctl [command] [flags]
//
// See 'lifxctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muurk/lifxlan/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	timeout    time.Duration
	attempts   int
	waitFor    time.Duration
	macs       []string
	labels     []string
	groups     []string
	ipv6Prefix string
	assumeYes  bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "lifxctl",
	Short: "LIFX LAN control utility",
	Long: `A command line client for LIFX bulbs speaking the LAN protocol.

Bulbs are found by broadcasting on UDP port 56700. No cloud account is
needed and nothing leaves the local network.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: the user config directory)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty keeps logging off")
	pf.DurationVar(&timeout, "timeout", 0, "Wait per request attempt (default from config)")
	pf.IntVar(&attempts, "attempts", 0, "Sends before a bulb counts as offline (default from config)")
	pf.DurationVar(&waitFor, "wait", 2*time.Second, "How long to listen for bulbs before acting")
	pf.StringSliceVar(&macs, "mac", nil, "Select bulbs by MAC address (repeatable)")
	pf.StringSliceVar(&labels, "label", nil, "Select bulbs by label (repeatable)")
	pf.StringSliceVar(&groups, "group", nil, "Select bulbs by group (repeatable)")
	pf.StringVar(&ipv6Prefix, "ipv6-prefix", "", "Address bulbs over IPv6 link-local, e.g. fe80::")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before changing every bulb")
	pf.BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), version.Get())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lifxctl %s\n", version.Full())
		return nil
	},
}
