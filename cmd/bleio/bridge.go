package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/bleio"
	"github.com/srg/bleio/internal/groutine"
)

// bridgeCmd represents the bridge command
var bridgeCmd = &cobra.Command{
	Use:   "bridge <device-address> <characteristic-uuid>",
	Short: "Bridge a characteristic to a PTY",
	Long: `Connect to a device and expose one characteristic as a
pseudo-terminal. Bytes written to the PTY go out as characteristic writes;
notification payloads (or polled reads) appear as PTY output. This gives
serial-terminal tools access to UART-over-BLE services.

Example:
  # Bridge a Nordic UART RX/TX pair's TX characteristic
  bleio bridge C8:FD:19:12:7F:CD 6e400003-b5a3-f393-e0a9-e50e24dcca9e

Then attach a terminal to the printed /dev/pts path.`,
	Args: cobra.ExactArgs(2),
	RunE: runBridge,
}

var bridgeServiceUUID string

func init() {
	bridgeCmd.Flags().StringVar(&bridgeServiceUUID, "service", "", "Service UUID (required if the characteristic UUID is ambiguous)")
}

func runBridge(cmd *cobra.Command, args []string) error {
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

	char, err := resolveCharacteristic(dev, bridgeServiceUUID, args[1])
	if err != nil {
		return err
	}

	xfer, err := char.IO()
	if err != nil {
		return err
	}
	defer func() {
		_ = xfer.Close()
	}()

	master, slave, err := pty.Open()
	if err != nil {
		return fmt.Errorf("failed to create PTY (check permissions and available PTY devices): %w", err)
	}
	defer func() {
		_ = master.Close()
		_ = slave.Close()
	}()

	// Raw mode: the bridge is a byte pipe, the terminal layer must not echo
	// or translate line endings.
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		return fmt.Errorf("failed to set PTY %s to raw mode: %w", slave.Name(), err)
	}

	fmt.Printf("bridging %s to %s, Ctrl+C to stop\n", char.UUID(), slave.Name())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	canRead := true
	canWrite := true
	if props, ok := char.Properties(); ok {
		canRead = props.Contains(bleio.PropertyRead)
		canWrite = props.Contains(bleio.PropertyWrite)
	}

	if canRead {
		groutine.Go(ctx, "bridge-ble-to-pty", func(ctx context.Context) {
			buf := make([]byte, 512)
			for ctx.Err() == nil {
				n, err := xfer.Read(buf)
				if err != nil {
					errCh <- fmt.Errorf("device read failed: %w", err)
					return
				}
				if n == 0 {
					continue
				}
				if _, err := master.Write(buf[:n]); err != nil {
					errCh <- fmt.Errorf("PTY write failed: %w", err)
					return
				}
			}
		})
	}

	if canWrite {
		groutine.Go(ctx, "bridge-pty-to-ble", func(ctx context.Context) {
			buf := make([]byte, 512)
			for {
				n, err := master.Read(buf)
				if err != nil {
					// The master is closed on teardown; that read error is
					// the normal exit, not a failure.
					if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
						errCh <- fmt.Errorf("PTY read failed: %w", err)
					}
					return
				}
				if _, err := xfer.Write(buf[:n]); err != nil {
					errCh <- fmt.Errorf("device write failed: %w", err)
					return
				}
			}
		})
	}

	select {
	case <-ctx.Done():
		return context.Canceled
	case <-dev.Disconnected():
		return fmt.Errorf("connection to %s lost", dev.Address())
	case err := <-errCh:
		return err
	}
}
