package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	spxlauncher "github.com/wagiedev/spx-launcher-go"
	"github.com/wagiedev/spx-launcher-go/internal/config"
	"github.com/wagiedev/spx-launcher-go/internal/log"
)

var (
	settings config.Settings
	logger   = spxlauncher.NopLogger()
	v        *viper.Viper

	flagSettingsFile string // value of --settings flag
)

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "spx-launcher: %s: %v\n", spxlauncher.ErrorKind(err), err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "spx-launcher",
		Short:        "Start, stop and supervise the SPX server",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagSettingsFile, "settings", "",
		"Launcher settings file - default is "+config.SettingsFileName+" in the SPX user config directory")
	rootCmd.PersistentFlags().Bool(config.KeyVerbose, false, "verbose logging")
	rootCmd.PersistentFlags().String(config.KeySidecar, "", "use this spx-server binary and skip discovery")
	rootCmd.PersistentFlags().String("config-file", "", "file remembering the picked spx-server path")

	// never print messages
	rootCmd.SilenceErrors = true

	// load settings, setup logging
	rootCmd.PersistentPreRunE = initLauncher

	rootCmd.AddCommand(
		newLaunchCmd(),
		newShellCmd(),
		newPortCmd(),
		newLogsCmd(),
		newConfigCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func initLauncher(cmd *cobra.Command, _ []string) error {
	v = config.NewViper(flagSettingsFile)

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		config.KeyVerbose:    config.KeyVerbose,
		config.KeySidecar:    config.KeySidecar,
		config.KeyConfigFile: "config-file",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	var err error

	settings, err = config.Load(v)
	if err != nil {
		return err
	}

	logger = log.New(os.Stderr, settings.Verbose)
	slog.SetDefault(logger)

	logger.Debug("Settings loaded", "settings_file", v.ConfigFileUsed(), "port", settings.Port)

	return nil
}

// launcherOptions builds the options shared by every command that touches
// the sidecar.
func launcherOptions(args []string) []spxlauncher.Option {
	opts := []spxlauncher.Option{
		spxlauncher.WithLogger(logger),
		spxlauncher.WithPort(config.PortFromArgs(args, settings.Port)),
	}

	if settings.Sidecar != "" {
		opts = append(opts, spxlauncher.WithSidecarPath(expandPath(settings.Sidecar)))
	}

	if settings.ConfigFile != "" {
		opts = append(opts, spxlauncher.WithConfigFile(expandPath(settings.ConfigFile)))
	}

	return opts
}

func expandPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}
