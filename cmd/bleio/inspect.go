package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/bleio/inspect"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <device-address>",
	Short: "Inspect a device's GATT database",
	Long: `Connect to a BLE device and print its full GATT tree: services,
characteristics with their capability flags, and descriptors with their
current values.

Example:
  bleio inspect C8:FD:19:12:7F:CD`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	dev, cancel, err := connectDevice(cmd.Context(), args[0], cfg.ConnectTimeout, logger)
	if err != nil {
		return err
	}
	defer cancel()
	defer func() {
		if err := dev.Close(); err != nil {
			logger.WithError(err).Error("Failed to disconnect device")
		}
	}()

	report, err := inspect.Collect(dev)
	if err != nil {
		return err
	}

	report.Render(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	return nil
}
