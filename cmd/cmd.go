// Package cmd builds the xv6goctl command hierarchy: boot a simulated
// kernel, run a short demo workload, and inspect the resulting snapshot.
// SetupCLI is adapted from proctor/cmd's cobra tree; the commands
// underneath it are new, grounded on kernel, hostprofile and snapshot.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xv6goctl",
	Short: "A command-line tool for booting and inspecting the xv6go simulated kernel.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot a simulated kernel, run a short fork/exit/wait workload, and snapshot the process table.",
	Run:   runBoot,
}

var psCmd = &cobra.Command{
	Use:     "ps",
	Aliases: []string{"list"},
	Short:   "List every slot in the most recently saved snapshot.",
	Run:     runPs,
}

var treeCmd = &cobra.Command{
	Use:   "tree [pid]",
	Short: "Show a slot and its ancestor chain from the most recently saved snapshot.",
	Run:   runTree,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [pid]",
	Short: "Dump a slot's full record structure for debugging.",
	Run:   runInspect,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage saved process-table snapshots.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved snapshot.",
	Run:   runSnapshotClear,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [addr]",
	Short: "Boot a simulated kernel and serve a live view of its process table over HTTP.",
	Run:   runDashboard,
}

// SetupCLI constructs the cobra hierarchy for the xv6goctl CLI.
func SetupCLI() *cobra.Command {
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotClearCmd)
	return rootCmd
}
