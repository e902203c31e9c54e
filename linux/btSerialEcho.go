//go:build linux

// btSerialEcho registers a Serial Port profile with BlueZ and echoes every
// byte it receives. It is the peer for trying btSerial against a second
// Linux machine.
package main

import (
	"context"
	"dosgo/btSerial/bluez"
	"dosgo/btSerial/comm"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "btSerialEcho",
	Short: "Echo bytes back over an RFCOMM Serial Port profile",
	Args:  cobra.NoArgs,
	RunE:  runEcho,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.Flags().String("service", comm.SerialPortServiceID.String(), "Service UUID to register")
	rootCmd.Flags().Uint16("channel", 1, "RFCOMM channel")
	rootCmd.Flags().Bool("debug", false, "Log every byte")
}

func main() {
	if err := rootCmd.Execute(); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func runEcho(cmd *cobra.Command, _ []string) error {
	serviceFlag, _ := cmd.Flags().GetString("service")
	channel, _ := cmd.Flags().GetUint16("channel")
	debug, _ := cmd.Flags().GetBool("debug")

	log := logrus.New()
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	id, err := comm.ParseServiceID(serviceFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	l, err := bluez.Listen(ctx, conn, id.String(), id.Name(), channel, log)
	if err != nil {
		return err
	}
	defer l.Close()
	log.WithFields(logrus.Fields{"service": l.UUID(), "channel": channel}).Info("Listening")

	for {
		file, addr, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("Shutting down")
				return nil
			}
			return err
		}
		go echo(file, log.WithField("device", addr))
	}
}

func echo(rw io.ReadWriteCloser, log logrus.FieldLogger) {
	defer rw.Close()
	log.Info("Connected")

	buf := make([]byte, 256)
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			log.Debugf("Echo %v", buf[:n])
			if _, werr := rw.Write(buf[:n]); werr != nil {
				log.WithError(werr).Warn("Write failed")
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Warn("Read failed")
			}
			log.Info("Disconnected")
			return
		}
	}
}
