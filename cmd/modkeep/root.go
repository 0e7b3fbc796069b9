package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/modkeep/pkg/modkeep/config"
	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

var (
	cfgFile string
	v       = newViper()
	cfg     *config.Config
	cfgErr  error

	rootCmd = &cobra.Command{
		Use:   "modkeep",
		Short: "Manage per-character mod folders",
		Long: `Modkeep keeps a folder of mods per moddable object (character) and lets you
enable, disable, rename, move and delete them safely. Enabled state lives in
the folder name: a DISABLED_ prefix means the mod is off.

Examples:
  modkeep list                       # List every mod
  modkeep list Alice --state off     # Disabled mods of one object
  modkeep disable Alice RedHat       # Rename RedHat to DISABLED_RedHat
  modkeep keyswap show Alice RedHat  # Show key-swap bindings
  modkeep watch                      # Follow changes live`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfgErr
		},
	}
)

func newViper() *viper.Viper {
	vp, err := config.New()
	if err != nil {
		return viper.New()
	}
	return vp
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/modkeep/config.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "mods root folder (default: ~/Mods)")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")

	_ = v.BindPFlag("mods_root", rootCmd.PersistentFlags().Lookup("root"))
	_ = v.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = v.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads the configuration and starts logging. Errors surface
// from PersistentPreRunE so commands never run on a broken config.
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	cfg, cfgErr = config.FromViper(v)
	if cfgErr != nil {
		return
	}

	logCfg, err := cfg.LoggingOptions()
	if err != nil {
		cfgErr = err
		return
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		printError("logging disabled: %v", err)
	}
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
}

func getVerbose() bool {
	return v.GetBool("verbose")
}

func getQuiet() bool {
	return v.GetBool("quiet")
}

func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
