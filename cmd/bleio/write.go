package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srg/bleio"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device-address> <characteristic-uuid> <hex-data>",
	Short: "Write a characteristic value",
	Long: `Connect to a device and write a value to one characteristic. The
payload is given as a hex string and is sent as a single write, exactly as
provided.

Examples:
  # Write a single byte
  bleio write C8:FD:19:12:7F:CD 2a39 01

  # Write a multi-byte payload
  bleio write C8:FD:19:12:7F:CD 6e400002-b5a3-f393-e0a9-e50e24dcca9e 48656c6c6f`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var writeServiceUUID string

func init() {
	writeCmd.Flags().StringVar(&writeServiceUUID, "service", "", "Service UUID (required if the characteristic UUID is ambiguous)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	payload, err := hex.DecodeString(args[2])
	if err != nil {
		return fmt.Errorf("invalid hex payload %q: %w", args[2], err)
	}

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

	char, err := resolveCharacteristic(dev, writeServiceUUID, args[1])
	if err != nil {
		return err
	}

	if props, ok := char.Properties(); ok && !props.Contains(bleio.PropertyWrite) {
		return fmt.Errorf("characteristic %s does not support write (capabilities: %s)", char.UUID(), props)
	}

	xfer, err := char.IO()
	if err != nil {
		return err
	}
	defer func() {
		_ = xfer.Close()
	}()

	n, err := xfer.Write(payload)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	fmt.Printf("wrote %d byte(s)\n", n)
	return nil
}
