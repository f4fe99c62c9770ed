// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package config holds the TOML configuration for the display driver: the
// serial device to use, sensor file locations and the panel definitions
// rendered to the screen.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asterctl/asterctl/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "ASTERCTL_CFG"
	CfgFile       = "config.toml"

	ByteOrderLittle = "little"
	ByteOrderBig    = "big"
)

type Values struct {
	Device       Device  `toml:"device"`
	Setup        Setup   `toml:"setup,omitempty"`
	Sensors      Sensors `toml:"sensors,omitempty"`
	Panels       []Panel `toml:"panels,omitempty"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

// Device selects and tunes the serial channel to the display controller.
// Path wins over USB when both are set.
type Device struct {
	Path         string `toml:"path,omitempty"`
	USB          string `toml:"usb,omitempty"`
	ByteOrder    string `toml:"byte_order,omitempty"`
	BaudRate     int    `toml:"baud_rate,omitempty"`
	AckTimeoutMs int    `toml:"ack_timeout_ms,omitempty"`
	WriteOnly    bool   `toml:"write_only"`
}

// Setup controls the panel rotation: how often the visible panel is
// re-rendered and how long each panel stays on screen.
type Setup struct {
	RefreshSeconds int `toml:"refresh,omitempty"`
	SwitchSeconds  int `toml:"switch_time,omitempty"`
}

type Sensors struct {
	Path string `toml:"path,omitempty"`
}

// Panel is one background image plus text fields placed over it.
type Panel struct {
	Name       string  `toml:"name,omitempty"`
	Background string  `toml:"background,omitempty"`
	Fields     []Field `toml:"fields,omitempty"`
}

// Field draws a sensor value (optionally prefixed by a label) at a pixel
// position. Color is "#RRGGBB"; an empty color renders white.
//
// IntegerDigits, DecimalDigits and Unit apply fixed-point formatting to
// numeric values: integer_digits = -1 keeps all integer digits, 0 drops the
// integer part, positive values zero-pad to that width. Leaving all three
// unset renders the raw sensor value.
type Field struct {
	IntegerDigits *int   `toml:"integer_digits,omitempty"`
	Sensor        string `toml:"sensor"`
	Label         string `toml:"label,omitempty"`
	Color         string `toml:"color,omitempty"`
	Unit          string `toml:"unit,omitempty"`
	X             int    `toml:"x"`
	Y             int    `toml:"y"`
	DecimalDigits int    `toml:"decimal_digits,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Device: Device{
		ByteOrder:    ByteOrderLittle,
		BaudRate:     1500000,
		AckTimeoutMs: 2000,
	},
	Setup: Setup{
		RefreshSeconds: 1,
		SwitchSeconds:  10,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	switch newVals.Device.ByteOrder {
	case "", ByteOrderLittle, ByteOrderBig:
	default:
		return fmt.Errorf("invalid byte_order: %q", newVals.Device.ByteOrder)
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DevicePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Path
}

func (c *Instance) SetDevicePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Path = path
}

func (c *Instance) USBID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.USB
}

func (c *Instance) SetUSBID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.USB = id
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.BaudRate
}

func (c *Instance) AckTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Device.AckTimeoutMs) * time.Millisecond
}

// WireByteOrder maps the configured byte_order string onto the binary
// encoder used when packing pixels. Load rejects anything other than
// "little", "big" or empty.
func (c *Instance) WireByteOrder() binary.ByteOrder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Device.ByteOrder == ByteOrderBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c *Instance) WriteOnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.WriteOnly
}

func (c *Instance) SetWriteOnly(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.WriteOnly = enabled
}

func (c *Instance) SensorPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Sensors.Path
}

func (c *Instance) SetSensorPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Sensors.Path = path
}

func (c *Instance) RefreshInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	secs := c.vals.Setup.RefreshSeconds
	if secs <= 0 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func (c *Instance) SwitchInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	secs := c.vals.Setup.SwitchSeconds
	if secs <= 0 {
		secs = c.defaults.Setup.SwitchSeconds
	}
	return time.Duration(secs) * time.Second
}

// Panels returns a copy of the configured panel list.
func (c *Instance) Panels() []Panel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	panels := make([]Panel, len(c.vals.Panels))
	copy(panels, c.vals.Panels)
	return panels
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
