// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the folio command line.
//
// Commands:
//
//	folio serve              run the gateway
//	folio chat [--plain]     chat with a gateway (full screen, or a line REPL)
//	folio ask "question"     one question, streamed to stdout
//	folio config init|show|validate
//	folio version
//
// Commands other than version and config init load ~/.folio/config.toml
// (or --config) and apply the environment overrides described in the
// config package. In line mode, /export [md|json] saves the transcript; the
// full-screen client does the same with ctrl+s.
package cli
