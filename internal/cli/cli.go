// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and global flags for folio.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jeranaias/folio/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	configPath string
	baseURL    string
	logLevel   string
	ephemeral  bool
}

// Execute runs the command tree and returns the process exit status.
func Execute() int {
	root := NewRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		DisplayError(root.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

// NewRootCommand builds the folio command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "folio",
		Short: "Chat with the portfolio assistant from your terminal",
		Long: `folio is a terminal client for the portfolio chat assistant.

It streams answers as they are written, shows the assistant's reasoning
while it works and remembers the conversation between runs.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Reason: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.folio/config.toml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "chat API base URL")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory only")

	root.AddCommand(
		newTUICommand(opts),
		newChatCommand(opts),
		newAskCommand(opts),
		newHealthCommand(opts),
		newHistoryCommand(opts),
		newClearCommand(opts),
		newConfigCommand(opts),
	)

	return root
}

func versionString() string {
	return fmt.Sprintf("folio %s (commit %s, built %s, %s/%s)",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// usageArgs turns cobra's argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Reason: err.Error()}
		}
		return nil
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// loadConfig loads the configuration and applies the global flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if o.baseURL != "" {
		cfg.Backend.BaseURL = o.baseURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.ephemeral {
		cfg.Session.Store = "memory"
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, &ConfigError{Err: verrs}
		}
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// configFilePath returns the file the config subcommands operate on.
func (o *rootOptions) configFilePath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}
