package main

import (
	"fmt"

	"clubhub-go/internal/version"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "clubctl",
		Short:         "Command line client for the club management API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newGoogleURLCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRequestCmd(a),
		newStoreCmd(a),
		newMockServerCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clubctl %s (%s)\n", version.Version, version.Commit)
		},
	}
}
