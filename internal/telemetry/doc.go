// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry configures OpenTelemetry tracing for ragworks.
//
// Backend calls are wrapped in spans by the backend package using the
// global tracer. With tracing disabled (the default) the global provider
// is a no-op and spans cost nothing.
//
// # Exporters
//
//   - file: JSONL, one span per line, for jq
//   - stdout: pretty-printed spans on stderr, for CLI debugging
//   - otlp: OTLP over gRPC to a collector
//
// # Usage
//
//	p, err := telemetry.NewProvider(telemetry.ConfigFrom(cfg))
//	if err != nil {
//	    return err
//	}
//	defer p.Shutdown(context.Background())
package telemetry
