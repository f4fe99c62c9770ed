// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package config

const (
	AppName    = "asterctl"
	AppVersion = "0.3.0"
)
