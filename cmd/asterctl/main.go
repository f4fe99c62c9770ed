// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// asterctl controls the AOOSTAR WTR MAX / GEM12+ PRO front panel display:
// power it on or off, show a single image, or run the panel rotation loop
// that renders sensor values onto configured backgrounds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/display"
	"github.com/asterctl/asterctl/pkg/helpers"
	"github.com/asterctl/asterctl/pkg/panel"
	"github.com/asterctl/asterctl/pkg/sensors"
	"github.com/asterctl/asterctl/pkg/service"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

//nolint:gocyclo // top-level flag dispatch
func run() error {
	devicePath := flag.String("device", "", "serial device path of the display")
	usbID := flag.String("usb", "", "USB vid:pid of the display (default "+display.DefaultUSBID+")")
	powerOn := flag.Bool("on", false, "power the display on")
	powerOff := flag.Bool("off", false, "power the display off and exit")
	imagePath := flag.String("image", "", "show a single image and exit")
	configPath := flag.String("config", "", "path to config file")
	configDir := flag.String("config-dir", "", "directory holding the config file")
	sensorPath := flag.String("sensor-path", "", "sensor file or directory to watch")
	offAfter := flag.Int("off-after", 0, "power the display off after this many seconds")
	writeOnly := flag.Bool("write-only", false, "skip acknowledgement reads (test mode)")
	simulate := flag.Bool("simulate", false, "use an in-memory display instead of hardware")
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		return nil
	}

	if err := helpers.InitLogging(
		filepath.Join(xdg.StateHome, config.AppName),
		[]io.Writer{os.Stderr},
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if *configPath != "" {
		if err := os.Setenv(config.CfgEnv, *configPath); err != nil {
			return fmt.Errorf("failed to set config path: %w", err)
		}
	}
	cfgDir := *configDir
	if cfgDir == "" {
		cfgDir = filepath.Join(xdg.ConfigHome, config.AppName)
	}

	cfg, err := config.NewConfig(cfgDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	helpers.SetDebugLogging(cfg.DebugLogging() || *debug)

	// Command line flags win over file values for this invocation.
	if *devicePath != "" {
		cfg.SetDevicePath(*devicePath)
	}
	if *usbID != "" {
		cfg.SetUSBID(*usbID)
	}
	if *writeOnly {
		cfg.SetWriteOnly(true)
	}
	if *sensorPath != "" {
		cfg.SetSensorPath(*sensorPath)
	}

	screen, err := openScreen(cfg, *simulate)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := screen.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing display")
		}
	}()

	if *powerOff {
		return screen.PowerOff()
	}
	if *powerOn {
		if err := screen.PowerOn(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *imagePath != "" {
		frame, loadErr := panel.LoadFrame(*imagePath)
		if loadErr != nil {
			return loadErr
		}
		if showErr := screen.Show(frame); showErr != nil {
			return showErr
		}
		return waitThenOff(ctx, screen, *offAfter)
	}

	if len(cfg.Panels()) == 0 {
		if *powerOn {
			return waitThenOff(ctx, screen, *offAfter)
		}
		return errors.New("nothing to do: no panels configured and no command given")
	}

	store := sensors.NewStore()
	if cfg.SensorPath() != "" {
		watcher, watchErr := sensors.StartWatch(store, cfg.SensorPath())
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			if closeErr := watcher.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("error closing sensor watcher")
			}
		}()
	}

	clock := clockwork.NewRealClock()
	if *offAfter > 0 {
		cancel := service.ScheduleOff(clock, time.Duration(*offAfter)*time.Second, screen)
		defer cancel()
	}

	svc := service.New(cfg, screen, panel.NewRenderer(store), clock)
	return svc.Run(ctx)
}

// openScreen opens the display per config: explicit device path first, then
// configured USB id, then the default USB id.
func openScreen(cfg *config.Instance, simulate bool) (*display.Screen, error) {
	builder := display.NewBuilder().
		ByteOrder(cfg.WireByteOrder()).
		AckTimeout(cfg.AckTimeout()).
		BaudRate(cfg.BaudRate()).
		WriteOnly(cfg.WriteOnly())

	switch {
	case simulate:
		return builder.Simulate()
	case cfg.DevicePath() != "":
		return builder.OpenDevice(cfg.DevicePath())
	case cfg.USBID() != "":
		return builder.OpenUSB(cfg.USBID())
	default:
		return builder.OpenDefault()
	}
}

// waitThenOff idles until the off timer fires or the process is signalled.
// With no timer configured it returns immediately, leaving the image up.
func waitThenOff(ctx context.Context, screen *display.Screen, offAfter int) error {
	if offAfter <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(time.Duration(offAfter) * time.Second):
		return screen.PowerOff()
	}
}
