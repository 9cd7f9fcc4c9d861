// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"openhush/internal/audio"
	"openhush/internal/config"
	"openhush/internal/log"
	"openhush/pkg/build"
)

var logger = log.Component("cmd")

// options is shared by every subcommand. cfg is filled in by the root
// command's PersistentPreRunE.
type options struct {
	configPath string
	deviceID   int
	verbose    bool
	cfg        *config.Config
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	info := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().IntVarP(&opts.deviceID, "device", "d", config.MinDeviceID,
		"Input device ID, overrides audio.input_device. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show debug output")

	rootCmd.AddCommand(
		newListCommand(),
		newRunCommand(opts),
		newCheckCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// load reads the config file, applies flag overrides and sets the log level.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		cfg.Audio.InputDevice = o.deviceID
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := log.LevelInfo
	if l, ok := log.ParseLevel(cfg.LogLevel); ok {
		level = l
	}
	if o.verbose || cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	o.cfg = cfg
	logger.Debugf("config loaded (path %q, device %d)", o.configPath, cfg.Audio.InputDevice)
	return nil
}

func newListCommand() *cobra.Command {
	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !asJSON {
				return audio.ListDevices(cmd.OutOrStdout())
			}
			devices, err := audio.HostDevices()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(devices)
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	return listCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(build.Get().String())
		},
	}
}
