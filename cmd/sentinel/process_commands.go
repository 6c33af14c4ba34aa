package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/sentinel"
	"github.com/loykin/sentinel/internal/engine"
	"github.com/loykin/sentinel/internal/env"
	"github.com/loykin/sentinel/internal/envfile"
	"github.com/loykin/sentinel/internal/errs"
	"github.com/loykin/sentinel/internal/registry"
)

func newRunCommand(c *command) *cobra.Command {
	var name, workdir, envFile, group string
	var restart bool
	var envKVs []string

	cmd := &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Spawn a new detached process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			if name == "" {
				name = args[0]
			}
			// Catch a name clash before spawning anything, so a rejected
			// run doesn't leave an untracked child behind.
			for _, p := range c.app.Registry.SnapshotProcesses() {
				if p.Name == name {
					return errs.New(errs.Conflict, "process:"+name, nil)
				}
			}

			procEnv := map[string]string{}
			if envFile != "" {
				m, err := envfile.Load(envFile)
				if err != nil {
					return err
				}
				for k, v := range m {
					procEnv[k] = v
				}
			}
			for _, kv := range envKVs {
				if i := strings.IndexByte(kv, '='); i >= 0 {
					procEnv[kv[:i]] = kv[i+1:]
				}
			}

			var groupEnv map[string]string
			if group != "" {
				g, err := c.app.Registry.FindGroup(group)
				if err != nil {
					return err
				}
				groupEnv = g.Env
			}

			ambient := env.FromOS()
			for k, v := range sentinel.ResolveEnvFiles(c.stateDir) {
				ambient[k] = v
			}
			resolved := env.Merge(ambient, groupEnv, procEnv)

			out, errf, err := c.app.Logs.Open(name)
			if err != nil {
				return err
			}
			defer func() { _ = out.Close(); _ = errf.Close() }()

			res, err := engine.Spawn(engine.SpawnInput{
				Command: command,
				CWD:     workdir,
				Env:     resolved,
				Stdout:  out,
				Stderr:  errf,
			})
			if err != nil {
				return err
			}

			rec, err := c.app.Registry.AddProcess(registry.ProcessRecord{
				Name:       name,
				Command:    command,
				PID:        res.PID,
				StartedAt:  res.StartedAt,
				CWD:        workdir,
				Env:        resolved,
				EnvFile:    envFile,
				Restart:    restart,
				Group:      group,
				StdoutPath: c.app.Logs.StdoutPath(name),
				StderrPath: c.app.Logs.StderrPath(name),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (id=%d pid=%d)\n", rec.Name, rec.ID, rec.PID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "process name (defaults to the first word of the command)")
	cmd.Flags().StringVar(&workdir, "workdir", "", "working directory")
	cmd.Flags().StringVar(&envFile, "env-file", "", "path to a KEY=VALUE env file")
	cmd.Flags().StringArrayVar(&envKVs, "env", nil, "KEY=VALUE, repeatable")
	cmd.Flags().StringVar(&group, "group", "", "group to join")
	cmd.Flags().BoolVar(&restart, "restart", false, "restart automatically on exit")
	return cmd
}

func newListCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Supervisor.SweepAll(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: sweep:", err)
			}
			procs := c.app.Registry.SnapshotProcesses()
			renderProcessTable(cmd.OutOrStdout(), procs)
			return nil
		},
	}
}

func newStatusCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status SELECTOR",
		Short: "Show liveness and resource usage for one process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Supervisor.SweepOne(args[0]); err != nil && errs.KindOf(err) != errs.NotFound {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: sweep:", err)
			}
			p, err := c.app.Registry.FindProcess(args[0])
			if err != nil {
				return err
			}
			m := engine.Status(p.PID, p.StartedAt)
			renderStatus(cmd.OutOrStdout(), p, m)
			return nil
		},
	}
}

func newStopCommand(c *command) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stop SELECTOR",
		Short: "Stop a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Registry.FindProcess(args[0])
			if err != nil {
				return err
			}
			outcome, err := engine.Stop(p.PID, p.StartedAt, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stopOutcomeLabel(outcome))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL immediately")
	return cmd
}

func stopOutcomeLabel(o engine.StopOutcome) string {
	if o == engine.AlreadyDead {
		return "already dead"
	}
	return "stopped"
}

func newRestartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart SELECTOR",
		Short: "Stop and respawn a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Registry.FindProcess(args[0])
			if err != nil {
				return err
			}
			if _, err := engine.Stop(p.PID, p.StartedAt, false); err != nil {
				return err
			}

			out, errf, err := c.app.Logs.Open(p.Name)
			if err != nil {
				return err
			}
			defer func() { _ = out.Close(); _ = errf.Close() }()

			res, err := engine.Spawn(engine.SpawnInput{Command: p.Command, CWD: p.CWD, Env: p.Env, Stdout: out, Stderr: errf})
			if err != nil {
				return err
			}
			pid, started := res.PID, res.StartedAt
			if _, err := c.app.Registry.UpdateProcess(p.ID, registry.ProcessPatch{PID: &pid, StartedAt: &started}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restarted %s (pid=%d)\n", p.Name, pid)
			return nil
		},
	}
}

func newLogsCommand(c *command) *cobra.Command {
	var stderr bool
	var follow bool
	var clear bool
	cmd := &cobra.Command{
		Use:   "logs SELECTOR",
		Short: "Print (or follow) a process's log output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Registry.FindProcess(args[0])
			if err != nil {
				return err
			}
			if clear {
				return c.app.Logs.Clear(p.Name)
			}
			path := p.StdoutPath
			if stderr {
				path = p.StderrPath
			}
			f, err := os.Open(path)
			if err != nil {
				return errs.New(errs.IOFailure, path, err)
			}
			defer func() { _ = f.Close() }()

			if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
				return errs.New(errs.IOFailure, path, err)
			}
			if !follow {
				return nil
			}
			r := bufio.NewReader(f)
			for {
				line, err := r.ReadString('\n')
				if len(line) > 0 {
					fmt.Fprint(cmd.OutOrStdout(), line)
				}
				if err != nil {
					time.Sleep(250 * time.Millisecond)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&stderr, "stderr", false, "show stderr instead of stdout")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new output")
	cmd.Flags().BoolVar(&clear, "clear", false, "truncate both log files instead of printing")
	return cmd
}

func newCleanCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove dead, non-restartable records",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs := c.app.Registry.SnapshotProcesses()
			multi := &errs.MultiError{}
			removed := 0
			for i, p := range procs {
				if p.Restart || engine.Exists(p.PID, p.StartedAt) {
					continue
				}
				if err := c.app.Registry.RemoveProcess(p.ID); err != nil {
					multi.Add(i, err)
					continue
				}
				removed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
			return multi.ErrOrNil()
		},
	}
}

func newStopAllCommand(c *command) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "stopall",
		Short: "Stop every tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.StopAllProcesses(force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL immediately")
	return cmd
}

func newStartAllCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "startall",
		Short: "Respawn every dead tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.StartAllProcesses()
		},
	}
}

func newRestartAllCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "restartall",
		Short: "Stop and respawn every tracked process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.RestartAllProcesses()
		},
	}
}
