package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dailytodo",
		Short:         "Daily to-do list backed by a spreadsheet",
		Long:          "dailytodo keeps a single daily to-do list in a Google spreadsheet (or a local SQLite file) and serves it over the web, Telegram and the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBotCommand())
	rootCmd.AddCommand(newTodayCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newSetCompletedCommand("done", "Mark a task as completed", true))
	rootCmd.AddCommand(newSetCompletedCommand("undo", "Mark a task as open again", false))
	rootCmd.AddCommand(newDeleteCommand())

	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
