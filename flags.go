package main

import (
	"dosgo/btSerial/comm"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addConfigFlags registers the flags that override config file values. They
// are persistent so every subcommand shares them.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", comm.DefaultConfigFile, "Config file (.yaml or .json)")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("directory", "", "Device directory (bluez, static)")
	f.String("adapter", "", "BlueZ adapter name, e.g. hci0")
	f.String("service", "", "Service UUID or short id (default Serial Port 0x1101)")
	f.String("transport", "", "Stream transport (profile, socket, tty)")
	f.String("picker", "", "Device picker (terminal, window, address)")
	f.StringP("address", "a", "", "Device address for the address picker")
	f.Int("channel", 0, "RFCOMM channel for the socket transport, 0 probes")
	f.String("tty", "", "Serial device for the tty transport")
	f.Int("baud", 0, "Baud rate for the tty transport")
	f.Bool("uncached", false, "Refresh the service list from the device")
	f.Duration("interval", 0, "Time between exchanges")
	f.Duration("read-timeout", 0, "How long each exchange waits for a reply")
	f.Duration("connect-timeout", 0, "How long opening the stream may take (profile and socket transports)")
}

// loadConfig reads the config file named by --config and applies every flag
// the user set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (*comm.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := comm.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyFlags(flags *pflag.FlagSet, cfg *comm.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}

	str("log-level", &cfg.LogLevel)
	str("directory", &cfg.Directory)
	str("adapter", &cfg.Adapter)
	str("service", &cfg.ServiceUUID)
	str("transport", &cfg.Transport)
	str("picker", &cfg.Picker)
	str("address", &cfg.Address)
	str("tty", &cfg.TTY)
	num("channel", &cfg.Channel)
	num("baud", &cfg.Baud)
	if err != nil {
		return err
	}

	if flags.Changed("uncached") {
		uncached, _ := flags.GetBool("uncached")
		cfg.CacheMode = comm.Cached.String()
		if uncached {
			cfg.CacheMode = comm.Uncached.String()
		}
	}
	for name, dst := range map[string]*time.Duration{
		"interval":        &cfg.TickInterval,
		"read-timeout":    &cfg.ReadTimeout,
		"connect-timeout": &cfg.ConnectTimeout,
	} {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetDuration(name); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
	}
	return nil
}
