package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/loykin/sentinel/internal/engine"
	"github.com/loykin/sentinel/internal/registry"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func renderProcessTable(w io.Writer, procs []registry.ProcessRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPID\tSTATE\tRESTART\tGROUP\tCOMMAND")
	for _, p := range procs {
		state := stateLabel(engine.Exists(p.PID, p.StartedAt))
		group := p.Group
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%t\t%s\t%s\n", p.ID, p.Name, p.PID, state, p.Restart, group, p.Command)
	}
	_ = tw.Flush()
}

func stateLabel(alive bool) string {
	if alive {
		return colorGreen + "up" + colorReset
	}
	return colorRed + "down" + colorReset
}

func renderStatus(w io.Writer, p registry.ProcessRecord, m engine.Metrics) {
	fmt.Fprintf(w, "name:       %s\n", p.Name)
	fmt.Fprintf(w, "id:         %d\n", p.ID)
	fmt.Fprintf(w, "pid:        %d\n", p.PID)
	fmt.Fprintf(w, "state:      %s\n", stateLabel(m.Exists))
	if m.Exists {
		fmt.Fprintf(w, "cpu:        %.1f%%\n", m.CPUPercent)
		fmt.Fprintf(w, "memory:     %d bytes\n", m.MemBytes)
		fmt.Fprintf(w, "uptime:     %s\n", m.Uptime.Round(time.Second))
	}
	fmt.Fprintf(w, "restart:    %t\n", p.Restart)
	if p.Group != "" {
		fmt.Fprintf(w, "group:      %s\n", p.Group)
	}
	fmt.Fprintf(w, "command:    %s\n", p.Command)
	if p.EnvFile != "" {
		fmt.Fprintf(w, "env_file:   %s\n", p.EnvFile)
	}
	fmt.Fprintf(w, "stdout_log: %s\n", p.StdoutPath)
	fmt.Fprintf(w, "stderr_log: %s\n", p.StderrPath)
}
