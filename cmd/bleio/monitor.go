package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/bleio"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <device-address> <characteristic-uuid>",
	Short: "Stream characteristic notifications",
	Long: `Connect to a device, subscribe to a characteristic, and print every
notification payload until interrupted.

Example:
  # Stream Heart Rate Measurement notifications
  bleio monitor C8:FD:19:12:7F:CD 2a37`,
	Args: cobra.ExactArgs(2),
	RunE: runMonitor,
}

var monitorServiceUUID string

func init() {
	monitorCmd.Flags().StringVar(&monitorServiceUUID, "service", "", "Service UUID (required if the characteristic UUID is ambiguous)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
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

	char, err := resolveCharacteristic(dev, monitorServiceUUID, args[1])
	if err != nil {
		return err
	}

	props, ok := char.Properties()
	if !ok || !props.Contains(bleio.PropertyNotify) {
		return fmt.Errorf("characteristic %s does not support notifications", char.UUID())
	}
	if !props.Contains(bleio.PropertyRead) {
		return fmt.Errorf("characteristic %s does not support read", char.UUID())
	}

	xfer, err := char.IO()
	if err != nil {
		return err
	}
	defer func() {
		_ = xfer.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "monitoring %s, Ctrl+C to stop\n", char.UUID())

	buf := make([]byte, 512)
	for ctx.Err() == nil {
		n, err := xfer.Read(buf)
		if err != nil {
			return fmt.Errorf("notification stream failed: %w", err)
		}
		if n == 0 {
			// Timed-out empty read; poll again until interrupted.
			continue
		}
		fmt.Printf("%s  %s\n", time.Now().Format(time.RFC3339), hex.EncodeToString(buf[:n]))
	}
	return context.Canceled
}
