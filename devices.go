package main

import (
	"dosgo/btSerial/comm"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices the system knows about",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().Bool("with-service", false, "Only list devices advertising the configured service")
}

func runDevices(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	dir, closeDir, err := openDirectory(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	var devices []comm.DeviceHandle
	if only, _ := cmd.Flags().GetBool("with-service"); only {
		id, _ := cfg.ServiceID()
		devices, err = devicesWithService(cmd.Context(), dir, id)
	} else {
		devices, err = dir.Devices(cmd.Context())
	}
	if err != nil {
		return err
	}
	printDevices(cmd.OutOrStdout(), devices)
	return nil
}

func printDevices(w io.Writer, devices []comm.DeviceHandle) {
	if len(devices) == 0 {
		fmt.Fprintln(w, color.YellowString("No devices found"))
		return
	}
	addr := color.New(color.FgCyan)
	for _, dev := range devices {
		var state string
		switch {
		case dev.Connected:
			state = color.GreenString("connected")
		case dev.Paired:
			state = "paired"
		}
		fmt.Fprintf(w, "%s  %-24s %s\n", addr.Sprint(dev.Address), dev.Name, state)
	}
}
