package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "transcritor",
		Short:         "Batch transcription pipeline for interview media",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCommand(&verbose))
	rootCmd.AddCommand(newResolveCommand(&verbose))
	rootCmd.AddCommand(newServeCommand(&verbose))

	return rootCmd
}
