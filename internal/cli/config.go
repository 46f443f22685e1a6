// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration commands.
//
// Examples:
//   ragworks config show                 Effective configuration
//   ragworks config show --json
//   ragworks config get backend.url
//   ragworks config set backend.url https://rag.example.com
//   ragworks config path

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ragworks-tui/internal/config"
)

func newConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Args:  noArgs,
	}
	cmd.AddCommand(
		newConfigShowCommand(g),
		newConfigGetCommand(g),
		newConfigSetCommand(g),
		newConfigPathCommand(g),
	)
	return cmd
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return NewJSONResponse("config show", cfg).Print(out)
			}

			fmt.Fprintln(out, TitleStyle.Render("ragworks configuration"))
			section := ""
			for _, key := range config.AllKeys() {
				head, name, _ := strings.Cut(key, ".")
				if head != section {
					section = head
					fmt.Fprintln(out)
					fmt.Fprintln(out, SectionStyle.Render("["+section+"]"))
				}
				v, _ := cfg.Get(key)
				fmt.Fprintln(out, RenderField(name, fmt.Sprint(v)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newConfigGetCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  exactArgs(1, "backend.url"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(),
					Example: "ragworks config show"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one value in the config file",
		Args:  exactArgs(2, "backend.url https://rag.example.com"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configFile()
			if err != nil {
				return &ConfigError{Err: err}
			}

			// Edit the file as written; flags and environment stay out of it.
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				load := config.LoadTOML
				if strings.HasSuffix(path, ".json") {
					load = config.LoadJSON
				}
				if err := load(cfg, path); err != nil {
					return &ConfigError{Err: err}
				}
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error()}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return &ConfigError{Err: err}
			}

			if g.configPath == "" {
				if err := config.EnsureConfigDir(); err != nil {
					return &ConfigError{Err: err}
				}
			}
			save := config.SaveTOML
			if strings.HasSuffix(path, ".json") {
				save = config.SaveJSON
			}
			if err := save(cfg, path); err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", SuccessStyle.Render("[OK]"), args[0], args[1])
			return nil
		},
	}
}

func newConfigPathCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := g.configFile()
			if err != nil {
				return &ConfigError{Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// configFile is --config, or the default TOML file.
func (o *globalOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPathTOML()
}
