package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "flatten [dir]",
		Short: "Flatten a directory tree and restore it later",
		Long: `Flatten moves every file below a directory to the directory itself,
renaming each one after its original path (sub/y.txt becomes sub__y.txt),
and removes the emptied subdirectories.

Every move is recorded in a restoration log, #restore.sh, inside the
directory before it is made. Restoring replays the log and deletes it.

Examples:
  flatten                    # Flatten ./in
  flatten -i ~/photos        # Flatten a specific directory
  flatten -d -i ~/photos     # Preview the moves without changing anything
  flatten -r -i ~/photos     # Restore the original tree
  flatten -r --builtin       # Restore without invoking a shell
  flatten history            # View past runs`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: initializeLogging,
		RunE:              runRoot,
		SilenceUsage:      true,
	}
)

// Flags that only select what a run does and have no config key.
var (
	restoreFlag bool
	builtinFlag bool
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/flatten/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	rootCmd.Flags().StringP("input", "i", "", "target directory (default \"in\")")
	rootCmd.Flags().BoolVarP(&restoreFlag, "restore", "r", false, "restore the tree from its restoration log")
	rootCmd.Flags().BoolP("dry-run", "d", false, "show what would happen without changing anything")
	rootCmd.Flags().BoolVar(&builtinFlag, "builtin", false, "replay the restoration log without a shell")
	rootCmd.Flags().StringP("format", "f", "", "summary format: pretty, plain, json, yaml (default pretty on a terminal)")
	rootCmd.Flags().BoolP("list", "l", false, "list every move in the summary")
	rootCmd.Flags().String("joiner", "", "separator replacing \"/\" in flat names (default \"__\")")
	rootCmd.Flags().Bool("no-history", false, "do not record this run in the history")

	// Bind flags to viper
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("default_target", rootCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("list", rootCmd.Flags().Lookup("list"))
	_ = viper.BindPFlag("joiner", rootCmd.Flags().Lookup("joiner"))
	_ = viper.BindPFlag("no_history", rootCmd.Flags().Lookup("no-history"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}
