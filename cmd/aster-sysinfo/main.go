// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// aster-sysinfo collects system metrics and writes them as sensor files for
// the asterctl panel loop. Files are replaced atomically so the watcher on
// the other side never reads a half-written file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

const outFile = "sysinfo.txt"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	outDir := flag.String("out", "", "directory to write sensor files to")
	refresh := flag.Int("refresh", 2, "collection interval in seconds")
	console := flag.Bool("console", false, "print values to stdout instead of writing files")
	once := flag.Bool("once", false, "collect a single sample and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("aster-sysinfo v%s\n", config.AppVersion)
		return nil
	}

	if err := helpers.InitLogging(
		filepath.Join(xdg.StateHome, config.AppName),
		[]io.Writer{os.Stderr},
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	helpers.SetDebugLogging(*debug)

	dir := *outDir
	if dir == "" {
		dir = filepath.Join(xdg.RuntimeDir, config.AppName)
	}
	if !*console {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		log.Info().Msgf("writing sensor files to %s", dir)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(*refresh) * time.Second
	col := newCollector()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		values := col.collect(ctx, interval)

		if *console {
			fmt.Print(renderSensors(values))
		} else if err := writeAtomic(filepath.Join(dir, outFile), renderSensors(values)); err != nil {
			log.Error().Err(err).Msg("error writing sensor file")
		}

		if *once {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// collector keeps the state needed for rate metrics between samples.
type collector struct {
	lastNetSent uint64
	lastNetRecv uint64
	haveNet     bool
}

func newCollector() *collector {
	return &collector{}
}

// collect gathers one sample. Each probe fails independently; a missing
// metric is simply absent from the result rather than failing the sample.
func (c *collector) collect(ctx context.Context, interval time.Duration) map[string]string {
	values := make(map[string]string)

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		values["cpu_usage"] = fmt.Sprintf("%.1f%%", percents[0])
	} else if err != nil {
		log.Debug().Err(err).Msg("cpu probe failed")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		values["memory_usage"] = fmt.Sprintf("%.1f%%", vm.UsedPercent)
		values["memory_used"] = formatBytes(vm.Used)
		values["memory_total"] = formatBytes(vm.Total)
	} else {
		log.Debug().Err(err).Msg("memory probe failed")
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		values["disk_usage"] = fmt.Sprintf("%.1f%%", usage.UsedPercent)
		values["disk_free"] = formatBytes(usage.Free)
	} else {
		log.Debug().Err(err).Msg("disk probe failed")
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		values["hostname"] = info.Hostname
		values["uptime"] = formatUptime(info.Uptime)
	} else {
		log.Debug().Err(err).Msg("host probe failed")
	}

	if temp, ok := cpuTemperature(ctx); ok {
		values["cpu_temp"] = fmt.Sprintf("%.0f°C", temp)
	}

	if counters, err := gopsnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		sent, recv := counters[0].BytesSent, counters[0].BytesRecv
		if c.haveNet && interval > 0 {
			secs := interval.Seconds()
			values["net_tx"] = formatRate(sent-c.lastNetSent, secs)
			values["net_rx"] = formatRate(recv-c.lastNetRecv, secs)
		}
		c.lastNetSent, c.lastNetRecv = sent, recv
		c.haveNet = true
	} else if err != nil {
		log.Debug().Err(err).Msg("net probe failed")
	}

	return values
}

// cpuTemperature picks the hottest CPU-ish sensor reading. Sensor naming
// varies wildly between machines, so match loosely and fall back to the
// overall maximum.
func cpuTemperature(ctx context.Context) (float64, bool) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(temps) == 0 {
		return 0, false
	}

	best := 0.0
	found := false
	maxAny := 0.0
	for _, t := range temps {
		if t.Temperature <= 0 {
			continue
		}
		if t.Temperature > maxAny {
			maxAny = t.Temperature
		}
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "coretemp") ||
			strings.Contains(key, "k10temp") ||
			strings.Contains(key, "cpu") ||
			strings.Contains(key, "tctl") {
			if t.Temperature > best {
				best = t.Temperature
				found = true
			}
		}
	}
	if found {
		return best, true
	}
	if maxAny > 0 {
		return maxAny, true
	}
	return 0, false
}

// renderSensors serializes values in the "key: value" sensor file format,
// sorted for stable output.
func renderSensors(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(values[k])
		b.WriteString("\n")
	}
	return b.String()
}

// writeAtomic replaces path via a temp file and rename so readers never see
// partial content.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil { //nolint:gosec // sensor data is public
		return fmt.Errorf("failed to write temp sensor file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace sensor file: %w", err)
	}
	return nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return fmt.Sprintf("%.1f GB", float64(n)/(unit*unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatRate(deltaBytes uint64, seconds float64) string {
	if seconds <= 0 {
		return "0 B/s"
	}
	return formatBytes(uint64(float64(deltaBytes)/seconds)) + "/s"
}

func formatUptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second //nolint:gosec // uptime fits
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
