package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Populated by the release build via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion prefixes release numbers with 'v'; named builds ("dev")
// pass through untouched.
func formatVersion(ver string) string {
	if ver == "" {
		return ver
	}
	if c := ver[0]; c >= '0' && c <= '9' {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "bleio",
	Short: "Talk to BLE devices from the command line",
	Long: `bleio drives Bluetooth Low Energy peripherals over the local adapter.

It can watch advertisements (scan), dump a device's GATT database
(inspect), do one-shot characteristic I/O (read, write), stream
notifications (monitor), and expose a characteristic as a pseudo-terminal
for serial-over-BLE firmware (bridge).

Addresses are MAC-style (C8:FD:19:12:7F:CD); UUIDs may be given in 16-bit
short form or the full 128-bit form.`,
	Version: formatVersion(version),
	SilenceErrors: true, // main prints its own, without cobra's prefix
}

func main() {
	err := rootCmd.Execute()
	if err == nil || errors.Is(err, context.Canceled) {
		// Canceled means Ctrl+C: a normal way to leave scan/monitor/bridge.
		return
	}
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
	os.Exit(1)
}

func init() {
	for _, cmd := range []*cobra.Command{scanCmd, inspectCmd, readCmd, writeCmd, monitorCmd, bridgeCmd} {
		rootCmd.AddCommand(cmd)
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
