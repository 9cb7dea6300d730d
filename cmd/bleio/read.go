package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/bleio"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device-address> <characteristic-uuid>",
	Short: "Read a characteristic value",
	Long: `Connect to a device and read one characteristic value.

Examples:
  # Read Battery Level
  bleio read C8:FD:19:12:7F:CD 2a19

  # Disambiguate when the UUID appears in several services
  bleio read C8:FD:19:12:7F:CD 2a19 --service 180f

  # Output as hex
  bleio read C8:FD:19:12:7F:CD 2a19 --hex`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

var (
	readServiceUUID string
	readHex         bool
)

func init() {
	readCmd.Flags().StringVar(&readServiceUUID, "service", "", "Service UUID (required if the characteristic UUID is ambiguous)")
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string; raw bytes by default")
}

func runRead(cmd *cobra.Command, args []string) error {
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

	char, err := resolveCharacteristic(dev, readServiceUUID, args[1])
	if err != nil {
		return err
	}

	// Check the capability up front; IO reads treat a violation as a
	// programming error and panic.
	if props, ok := char.Properties(); ok && !props.Contains(bleio.PropertyRead) {
		return fmt.Errorf("characteristic %s does not support read (capabilities: %s)", char.UUID(), props)
	}

	xfer, err := char.IO()
	if err != nil {
		return err
	}
	defer func() {
		_ = xfer.Close()
	}()

	buf := make([]byte, 512)
	n, err := xfer.Read(buf)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	if readHex {
		fmt.Println(hex.EncodeToString(buf[:n]))
		return nil
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}
