package engine

import (
	"os/exec"
	"strings"
)

// buildCommand turns a single command-line string into an *exec.Cmd,
// honoring an explicit shell invocation already present in the string
// (so "sh -c '...'" isn't double-wrapped) and otherwise falling back to
// /bin/sh -c whenever shell metacharacters are present.
func buildCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if _, afterC, ok := parseExplicitShell(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(parts[0], args...)
}

// parseExplicitShell detects "sh -c <ARG>" / "/bin/sh -c <ARG>" /
// "/usr/bin/sh -c <ARG>" at the start of cmdStr, returning the shell
// path and the verbatim remainder (quotes stripped at most once) when
// matched.
func parseExplicitShell(cmdStr string) (shell, rest string, ok bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if !strings.HasPrefix(trim, p) {
			continue
		}
		after := trim[len(p):]
		if n := len(after); n >= 2 {
			if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
				after = after[1 : n-1]
			}
		}
		return strings.Fields(p)[0], after, true
	}
	return "", "", false
}
