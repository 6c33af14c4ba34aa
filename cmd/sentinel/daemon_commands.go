package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/sentinel/internal/logger"
	"github.com/loykin/sentinel/internal/supervisor"
)

func newDaemonCommand(c *command) *cobra.Command {
	daemon := &cobra.Command{
		Use:   "daemon",
		Short: "Run the restart supervisor as a background daemon",
	}
	daemon.AddCommand(
		newDaemonStartCommand(c),
		newDaemonStopCommand(c),
		newDaemonStatusCommand(c),
		newDaemonRunCommand(c),
	)
	return daemon
}

func newDaemonStartCommand(c *command) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Fork a detached daemon process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := filepath.Join(c.stateDir, "daemon.log")
			pid, err := supervisor.DaemonStart(c.stateDir,
				[]string{"daemon", "run", "--interval", interval.String()}, logPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daemon started (pid=%d)\n", pid)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultSweepInterval, "time between restart sweeps")
	return cmd
}

func newDaemonStopCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return supervisor.DaemonStop(c.stateDir)
		},
	}
}

func newDaemonStatusCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, running, err := supervisor.DaemonStatus(c.stateDir)
			if err != nil {
				return err
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "daemon not running")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daemon running (pid=%d)\n", pid)
			return nil
		},
	}
}

// newDaemonRunCommand is the hidden entry point DaemonStart re-execs
// into: it's never invoked directly by a user, only by the forked
// child process itself.
func newDaemonRunCommand(c *command) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:    "run",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
			// DaemonStart already redirects this process's stdout/stderr
			// to daemon.log, so a plain stderr-writing logger lands there.
			log := logger.New(os.Stderr, logger.Options{Level: slog.LevelInfo})
			supervisor.RunForeground(c.app.Supervisor, interval, sig, log)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultSweepInterval, "time between restart sweeps")
	return cmd
}
