package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/sentinel"
)

// command bundles the App aggregate with the state directory path, so
// verbs that need to touch paths directly (daemon start/stop, the
// global .env lookup) don't have to reach back into sentinel.App for
// it repeatedly.
type command struct {
	app      *sentinel.App
	stateDir string
}

func buildRoot(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "A lightweight, single-host process supervisor",
		Long: `Sentinel spawns commands as detached background processes, tracks
them across invocations of this tool, and can automatically restart
ones that exit unexpectedly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCommand(c),
		newListCommand(c),
		newStatusCommand(c),
		newStopCommand(c),
		newRestartCommand(c),
		newLogsCommand(c),
		newCleanCommand(c),
		newStopAllCommand(c),
		newStartAllCommand(c),
		newRestartAllCommand(c),
		newDaemonCommand(c),
		newGroupCommand(c),
		newPortCommand(c),
	)
	return root
}

const defaultSweepInterval = 5 * time.Second
