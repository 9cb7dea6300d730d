package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srg/bleio"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Each discovered device is printed with its address, RSSI, advertised name,
and advertised service UUIDs. Duplicate advertisements from the same address
are suppressed unless --duplicates is given.`,
	RunE: runScan,
}

var (
	scanDuration   time.Duration
	scanDuplicates bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (0 for indefinite)")
	scanCmd.Flags().BoolVar(&scanDuplicates, "duplicates", false, "Report repeated advertisements from the same device")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	duration := scanDuration
	if duration == 0 && !cmd.Flags().Changed("duration") {
		duration = cfg.ScanTimeout
	}

	watcher, err := bleio.NewAdvertisementWatcher(logger)
	if err != nil {
		return fmt.Errorf("failed to start BLE scan: %w", err)
	}
	defer watcher.Stop()

	// Ctrl+C or the duration deadline both end the scan by stopping the
	// watcher, which closes the advertisement sequence.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		watcher.Stop()
	}()

	if duration > 0 {
		timer := time.AfterFunc(duration, watcher.Stop)
		defer timer.Stop()
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	addrColor := color.New(color.FgCyan)
	nameColor := color.New(color.FgGreen)
	if isTTY {
		addrColor.EnableColor()
		nameColor.EnableColor()
	} else {
		addrColor.DisableColor()
		nameColor.DisableColor()
	}

	// Lock-free registry: the consumer loop is single-goroutine today, but
	// the de-dup set outlives it into the summary below.
	seen := hashmap.New[uint64, string]()

	for {
		adv, ok := watcher.Next()
		if !ok {
			break
		}

		if _, loaded := seen.GetOrInsert(uint64(adv.Address()), adv.LocalName()); loaded && !scanDuplicates {
			continue
		}

		line := fmt.Sprintf("%s  %4d dBm", addrColor.Sprint(adv.Address()), adv.SignalStrength())
		if name := adv.LocalName(); name != "" {
			line += "  " + nameColor.Sprint(name)
		}
		if svcs := adv.Services(); len(svcs) > 0 {
			line += "  [" + strings.Join(svcs, ",") + "]"
		}
		if !adv.Connectable() {
			line += "  (non-connectable)"
		}
		fmt.Println(line)
	}

	fmt.Printf("\n%d device(s) discovered\n", seen.Len())
	return nil
}
