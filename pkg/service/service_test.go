// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/panel"
	"github.com/asterctl/asterctl/pkg/sensors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	showErr     error
	frames      []*image.RGBA
	mu          sync.Mutex
	powerOffs   int
	powerOffSig chan struct{}
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{powerOffSig: make(chan struct{}, 1)}
}

func (f *fakeDisplay) Show(img image.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showErr != nil {
		return f.showErr
	}
	rgba, _ := img.(*image.RGBA)
	f.frames = append(f.frames, rgba)
	return nil
}

func (f *fakeDisplay) PowerOff() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.powerOffs++
	select {
	case f.powerOffSig <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeDisplay) showCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeDisplay) frame(i int) *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i]
}

func (f *fakeDisplay) waitShows(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.showCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("display never reached %d frames, got %d", n, f.showCount())
}

func testConfig(t *testing.T, body string) *config.Instance {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.CfgFile), []byte(body), 0o600))
	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

const twoPanelConfig = `
config_schema = 1

[setup]
refresh = 1
switch_time = 5

[[panels]]
name = "first"

[[panels.fields]]
sensor = "s1"
x = 10
y = 20

[[panels]]
name = "second"

[[panels.fields]]
sensor = "s2"
x = 10
y = 20
`

func newTestService(t *testing.T, disp Display) (*Service, *clockwork.FakeClock) {
	t.Helper()

	cfg := testConfig(t, twoPanelConfig)

	store := sensors.NewStore()
	store.Set("s1", "AAAAAAAA")
	store.Set("s2", "ZZ")

	clock := clockwork.NewFakeClock()
	return New(cfg, disp, panel.NewRenderer(store), clock), clock
}

func TestRunRendersRefreshesAndSwitches(t *testing.T) {
	t.Parallel()

	disp := newFakeDisplay()
	svc, clock := newTestService(t, disp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// First panel renders immediately, before any tick.
	disp.waitShows(t, 1)
	first := disp.frame(0)

	// Both tickers are registered before advancing the clock.
	clock.BlockUntil(2)

	// Refresh tick re-renders the same panel.
	clock.Advance(time.Second)
	disp.waitShows(t, 2)
	assert.True(t, bytes.Equal(first.Pix, disp.frame(1).Pix),
		"refresh must re-render the same panel")

	// Switch tick advances to the second panel, which renders differently.
	// The same advance also fires pending refresh ticks, so scan every new
	// frame for one that is not the first panel.
	clock.Advance(5 * time.Second)
	switched := func() bool {
		for i := 0; i < disp.showCount(); i++ {
			if !bytes.Equal(first.Pix, disp.frame(i).Pix) {
				return true
			}
		}
		return false
	}
	deadline := time.Now().Add(5 * time.Second)
	for !switched() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.True(t, switched(), "switch must render a different panel")

	cancel()
	require.NoError(t, <-done)
}

func TestRunNoPanels(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "config_schema = 1\n")
	svc := New(cfg, newFakeDisplay(), panel.NewRenderer(sensors.NewStore()), clockwork.NewFakeClock())

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no panels configured")
}

func TestRunStopsOnShowError(t *testing.T) {
	t.Parallel()

	disp := newFakeDisplay()
	disp.showErr = assert.AnError
	svc, _ := newTestService(t, disp)

	err := svc.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, assert.AnError)
}

func TestRunCleanShutdownOnCancel(t *testing.T) {
	t.Parallel()

	disp := newFakeDisplay()
	svc, _ := newTestService(t, disp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	disp.waitShows(t, 1)
	cancel()
	require.NoError(t, <-done)
}

func TestScheduleOffFires(t *testing.T) {
	t.Parallel()

	disp := newFakeDisplay()
	clock := clockwork.NewFakeClock()

	cancel := ScheduleOff(clock, 30*time.Second, disp)
	defer cancel()

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	select {
	case <-disp.powerOffSig:
	case <-time.After(5 * time.Second):
		t.Fatal("off timer never powered the display off")
	}
}

func TestScheduleOffCancelled(t *testing.T) {
	t.Parallel()

	disp := newFakeDisplay()
	clock := clockwork.NewFakeClock()

	cancel := ScheduleOff(clock, 30*time.Second, disp)
	clock.BlockUntil(1)
	cancel()
	// Cancel twice is harmless.
	cancel()

	clock.Advance(time.Minute)
	assert.Never(t, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return disp.powerOffs > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}
