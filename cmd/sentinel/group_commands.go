package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loykin/sentinel/internal/engine"
)

func newGroupCommand(c *command) *cobra.Command {
	group := &cobra.Command{
		Use:   "group",
		Short: "Manage named process groups",
	}
	group.AddCommand(
		newGroupCreateCommand(c),
		newGroupDeleteCommand(c),
		newGroupAddCommand(c),
		newGroupRemoveCommand(c),
		newGroupListCommand(c),
		newGroupStartCommand(c),
		newGroupStopCommand(c),
		newGroupRestartCommand(c),
	)
	return group
}

func newGroupCreateCommand(c *command) *cobra.Command {
	var envKVs []string
	cmd := &cobra.Command{
		Use:  "create NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := map[string]string{}
			for _, kv := range envKVs {
				if i := strings.IndexByte(kv, '='); i >= 0 {
					env[kv[:i]] = kv[i+1:]
				}
			}
			_, err := c.app.Registry.AddGroup(args[0], env)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&envKVs, "env", nil, "KEY=VALUE overlay applied to every member at spawn time, repeatable")
	return cmd
}

func newGroupDeleteCommand(c *command) *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:  "delete NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.DeleteGroup(args[0], stop)
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "stop members before tearing the group down")
	return cmd
}

func newGroupAddCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "add NAME SELECTOR",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Registry.FindProcess(args[1])
			if err != nil {
				return err
			}
			return c.app.Registry.AddMember(args[0], p.ID)
		},
	}
}

func newGroupRemoveCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "remove SELECTOR",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Registry.FindProcess(args[0])
			if err != nil {
				return err
			}
			return c.app.Registry.RemoveMember(p.ID)
		},
	}
}

func newGroupListCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, g := range c.app.Registry.SnapshotGroups() {
				members := c.app.Registry.MembersOf(g.Name)
				alive := 0
				for _, m := range members {
					if engine.Exists(m.PID, m.StartedAt) {
						alive++
					}
				}
				fmt.Fprintf(w, "%s\t%d member(s), %d up\n", g.Name, len(members), alive)
			}
			return nil
		},
	}
}

func newGroupStartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "start NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.StartAll(args[0])
		},
	}
}

func newGroupStopCommand(c *command) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:  "stop NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.StopAll(args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL immediately")
	return cmd
}

func newGroupRestartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "restart NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Supervisor.RestartAll(args[0])
		},
	}
}
