package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "btSerial",
	Short: "Talk to a Bluetooth serial port device",
	Long: `Pick a Bluetooth device, open its Serial Port service and exchange one
byte per tick with it: a random byte is written and a reply, if any, is read
back and logged.

The device must already be paired through the operating system.`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE:    runExchange,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("ERROR:"), formatUserError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(configCmd)

	addConfigFlags(rootCmd)
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
