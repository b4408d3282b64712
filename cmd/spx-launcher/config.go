package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	spxlauncher "github.com/wagiedev/spx-launcher-go"
	"github.com/wagiedev/spx-launcher-go/internal/locate"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change the remembered spx-server location",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the file the location is remembered in",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := configStore()
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), store.Path())

				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the remembered spx-server location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := configStore()
				if err != nil {
					return err
				}

				path, err := store.Load()
				if stderrors.Is(err, spxlauncher.ErrConfigNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "(not set)")

					return nil
				}

				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), path)

				return nil
			},
		},
		&cobra.Command{
			Use:   "set <path>",
			Short: "Remember a spx-server binary, or the folder containing it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := configStore()
				if err != nil {
					return err
				}

				path, err := sidecarFromArg(args[0])
				if err != nil {
					return err
				}

				if err := store.Save(path); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), path)

				return nil
			},
		},
		&cobra.Command{
			Use:   "forget",
			Short: "Forget the remembered location so the next launch asks again",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				store, err := configStore()
				if err != nil {
					return err
				}

				return store.Forget()
			},
		},
	)

	return cmd
}

func configStore() (*locate.Store, error) {
	if settings.ConfigFile != "" {
		return locate.NewStore(expandPath(settings.ConfigFile)), nil
	}

	path, err := locate.DefaultConfigFile()
	if err != nil {
		return nil, err
	}

	return locate.NewStore(path), nil
}

// sidecarFromArg accepts the binary or its folder and returns the absolute
// binary path, which must be an existing file.
func sidecarFromArg(arg string) (string, error) {
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("absolute path of %s: %w", arg, err)
	}

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, locate.SidecarName(runtime.GOOS))
		info, err = os.Stat(path)
	}

	if err != nil || !info.Mode().IsRegular() {
		return "", &spxlauncher.PathResolutionFailedError{SearchedPaths: []string{path}}
	}

	return path, nil
}
