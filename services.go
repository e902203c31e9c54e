package main

import (
	"dosgo/btSerial/comm"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var servicesCmd = &cobra.Command{
	Use:   "services <address>",
	Short: "List the services a device advertises",
	Args:  cobra.ExactArgs(1),
	RunE:  runServices,
}

func runServices(cmd *cobra.Command, args []string) error {
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

	mode, _ := comm.ParseCacheMode(cfg.CacheMode)
	dev := comm.DeviceHandle{Address: args[0]}
	if devices, err := dir.Devices(cmd.Context()); err == nil {
		for _, d := range devices {
			if strings.EqualFold(d.Address, args[0]) {
				dev = d
			}
		}
	}

	services, err := dir.Services(cmd.Context(), dev, mode)
	if err != nil {
		return err
	}
	id, _ := cfg.ServiceID()
	printServices(cmd.OutOrStdout(), services, id)
	return nil
}

// printServices marks the configured service so it stands out.
func printServices(w io.Writer, services []comm.Service, want comm.ServiceID) {
	if len(services) == 0 {
		fmt.Fprintln(w, color.YellowString("No services advertised"))
		return
	}
	for _, svc := range services {
		line := fmt.Sprintf("%s  %s", svc.ID, svc.Name)
		if svc.ID == want {
			line = color.GreenString("%s  *", line)
		}
		fmt.Fprintln(w, line)
	}
}
