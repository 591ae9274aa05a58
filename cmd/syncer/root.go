package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "syncer",
		Short:         "Ingest news from NewsAPI, The Guardian and The New York Times",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		newSyncCommand(a),
		newStatusCommand(a),
		newWorkerCommand(a),
		newScheduleCommand(a),
		newMigrateCommand(a),
		newCategoriesCommand(a),
	)

	return root
}
