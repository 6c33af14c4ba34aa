package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPortCommand(c *command) *cobra.Command {
	port := &cobra.Command{
		Use:   "port",
		Short: "Manage the reserved-port table",
	}
	port.AddCommand(newPortAllocateCommand(c), newPortFreeCommand(c), newPortListCommand(c))
	return port
}

func newPortAllocateCommand(c *command) *cobra.Command {
	var explicit int
	var name string
	cmd := &cobra.Command{
		Use:  "allocate",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var portPtr *int
			if explicit != 0 {
				portPtr = &explicit
			}
			rec, err := c.app.AllocatePort(portPtr, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "allocated port %d (%s)\n", rec.Port, rec.Name)
			return nil
		},
	}
	cmd.Flags().IntVar(&explicit, "port", 0, "explicit port to reserve (0 picks an ephemeral one)")
	cmd.Flags().StringVar(&name, "name", "", "label for the reservation (defaults to \"default\")")
	return cmd
}

func newPortFreeCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "free PORT",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return c.app.Registry.FreePort(p)
		},
	}
}

func newPortListCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range c.app.Registry.SnapshotPorts() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.Port, p.Name)
			}
			return nil
		},
	}
}
