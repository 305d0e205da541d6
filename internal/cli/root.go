// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jedsmith2004/folio/internal/config"
	"github.com/jedsmith2004/folio/internal/logging"
	"github.com/jedsmith2004/folio/internal/profile"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app carries state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Portfolio assistant gateway and terminal chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.folio/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newChatCmd(a),
		newAskCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	return nil
}

// logger sets up logging for a command. A non-empty file wins over w.
func (a *app) logger(w io.Writer, file string) (zerolog.Logger, io.Closer, error) {
	log, closer, err := logging.Setup(logging.Options{
		Level:  a.cfg.Logging.Level,
		Pretty: a.cfg.Logging.Pretty || (file == "" && IsStderrTTY()),
		File:   file,
	}, w)
	if err != nil {
		return log, closer, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, closer, nil
}

// loadProfile reads the configured profile, or the built-in one when no
// path is set.
func (a *app) loadProfile() (*profile.Profile, error) {
	if a.cfg.Profile.Path == "" {
		return profile.Default(), nil
	}
	return profile.Load(a.cfg.Profile.Path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "folio %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
