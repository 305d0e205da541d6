// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for folio.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - UpstreamConfig: Upstream provider credentials, candidate models and request shaping
//   - GatewayConfig: HTTP listener, CORS and rate limiting
//   - ClientConfig: Chat client settings including placeholder animation timing
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GROQ_API_KEY, GROQ_MODEL, FOLIO_*)
//   - ~/.folio/config.toml (or the path given with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addr := cfg.Gateway.Addr
package config
