package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/modkeep/pkg/modkeep/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage modkeep configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/modkeep/config.yaml (if set)
  2. ~/.config/modkeep/config.yaml

Environment variables override file settings using the MODKEEP_ prefix:
  MODKEEP_MODS_ROOT=~/Games/Mods
  MODKEEP_KEYSWAP_LOOKAHEAD=20`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config commands must work while the config is broken.
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in $VISUAL, $EDITOR or vi, creating a default
file first if none exists.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configEditCmd, configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if cfgErr != nil {
		return cfgErr
	}
	out := cmd.OutOrStdout()

	if file := v.ConfigFileUsed(); file != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	} else {
		fmt.Fprint(out, "Config file: (using defaults, no file found)\n\n")
	}

	fmt.Fprintf(out, "mods_root:               %s\n", cfg.ModsRoot)
	fmt.Fprintf(out, "objects:                 %v\n", cfg.Objects)
	fmt.Fprintf(out, "settings_file:           %s\n", cfg.SettingsFile)
	fmt.Fprintf(out, "keyswap.lookahead:       %d\n", cfg.KeySwap.Lookahead)
	fmt.Fprintf(out, "watcher.pair_window:     %s\n", cfg.Watcher.PairWindow)
	fmt.Fprintf(out, "watcher.settle:          %s\n", cfg.Watcher.Settle)
	fmt.Fprintf(out, "archive.path:            %s\n", cfg.Archive.Path)
	fmt.Fprintf(out, "history.enabled:         %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "history.path:            %s\n", cfg.History.Path)
	fmt.Fprintf(out, "history.retention_days:  %d\n", cfg.History.RetentionDays)
	fmt.Fprintf(out, "logging.level:           %s\n", cfg.Logging.Level)
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'modkeep config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", path)
	return nil
}
