// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package service runs the panel rotation loop: it re-renders the visible
// panel on a refresh tick, advances to the next panel on a switch tick and
// ships the resulting frames to the display. Rendering and shipping are
// decoupled so a slow serial transfer never blocks rendering; only the
// latest frame is kept when the display falls behind.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/asterctl/asterctl/pkg/config"
	"github.com/asterctl/asterctl/pkg/panel"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Display is the subset of the screen driver the service needs.
type Display interface {
	Show(img image.Image) error
	PowerOff() error
}

type Service struct {
	cfg      *config.Instance
	display  Display
	renderer *panel.Renderer
	clock    clockwork.Clock
}

func New(cfg *config.Instance, display Display, renderer *panel.Renderer, clock clockwork.Clock) *Service {
	return &Service{
		cfg:      cfg,
		display:  display,
		renderer: renderer,
		clock:    clock,
	}
}

// Run renders and ships panels until ctx is cancelled. A cancelled context
// is a clean shutdown and returns nil; render and transfer failures are
// returned as errors.
func (s *Service) Run(ctx context.Context) error {
	panels := s.cfg.Panels()
	if len(panels) == 0 {
		return errors.New("no panels configured")
	}

	log.Info().Msgf(
		"starting panel loop: %d panels, refresh %s, switch %s",
		len(panels), s.cfg.RefreshInterval(), s.cfg.SwitchInterval(),
	)

	frames := make(chan *image.RGBA, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.produce(ctx, panels, frames)
	})
	g.Go(func() error {
		return s.ship(ctx, frames)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) produce(ctx context.Context, panels []config.Panel, frames chan *image.RGBA) error {
	refresh := s.clock.NewTicker(s.cfg.RefreshInterval())
	defer refresh.Stop()
	switcher := s.clock.NewTicker(s.cfg.SwitchInterval())
	defer switcher.Stop()

	idx := 0
	if err := s.renderAndQueue(ctx, panels[idx], frames); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.Chan():
		case <-switcher.Chan():
			idx = (idx + 1) % len(panels)
			log.Debug().Msgf("switching to panel %d: %s", idx, panels[idx].Name)
		}
		if err := s.renderAndQueue(ctx, panels[idx], frames); err != nil {
			return err
		}
	}
}

func (s *Service) renderAndQueue(ctx context.Context, p config.Panel, frames chan *image.RGBA) error {
	frame, err := s.renderer.Render(p)
	if err != nil {
		return fmt.Errorf("failed to render panel %q: %w", p.Name, err)
	}

	// Latest frame wins: replace a queued frame the display never got to.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frames <- frame:
			return nil
		default:
		}
		select {
		case <-frames:
		default:
		}
	}
}

func (s *Service) ship(ctx context.Context, frames <-chan *image.RGBA) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-frames:
			if err := s.display.Show(frame); err != nil {
				return fmt.Errorf("failed to show frame: %w", err)
			}
		}
	}
}

// ScheduleOff powers the display off after d unless the returned cancel
// function is called first. Cancel is safe to call more than once.
func ScheduleOff(clock clockwork.Clock, d time.Duration, display Display) (cancel func()) {
	done := make(chan struct{})

	go func() {
		select {
		case <-clock.After(d):
			log.Info().Msgf("off timer fired after %s", d)
			if err := display.PowerOff(); err != nil {
				log.Error().Err(err).Msg("error powering off display")
			}
		case <-done:
			log.Debug().Msg("off timer cancelled")
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
