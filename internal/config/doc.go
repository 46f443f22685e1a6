// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragworks.
//
// Supports both TOML and JSON configuration formats, with defaults, a
// best-effort .env file, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: top-level configuration
//   - BackendConfig: RAG backend location and request timeout
//   - AuthFlowConfig: browser sign-in (OAuth) settings
//   - SessionConfig: session invalidation and cross-process sync
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RAGWORKS_*), including those from ./.env
//   - ~/.ragworks/config.toml
//   - ~/.ragworks/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := backend.NewClient(cfg.Backend.URL)
package config
