// Command sentinel is the CLI presentation layer: it parses arguments,
// renders output, and maps core error kinds to process exit codes.
// Verbs work through the sentinel package's App aggregate; run, stop
// and restart also call the engine directly and compose the spawn
// steps (env merge, log sinks, spawn, Registry update) themselves.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/loykin/sentinel"
	"github.com/loykin/sentinel/internal/errs"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// The daemon loop installs its own handlers for graceful shutdown;
	// every other invocation exits 130 on ^C per the exit-code contract.
	if !isDaemonRun(args) {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		go func() {
			<-sig
			os.Exit(130)
		}()
	}

	stateDir, err := resolveStateDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		return 2
	}

	app, err := sentinel.Open(stateDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		return exitCodeFor(err)
	}

	root := buildRoot(&command{app: app, stateDir: stateDir})
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		return exitCodeFor(err)
	}
	return 0
}

func isDaemonRun(args []string) bool {
	return len(args) >= 2 && args[0] == "daemon" && args[1] == "run"
}

func resolveStateDir() (string, error) {
	if d := os.Getenv("SENTINEL_STATE_DIR"); d != "" {
		return d, nil
	}
	return sentinel.DefaultStateDir()
}

// exitCodeFor maps a core error kind to the exit-code contract: 0
// success, 1 user error, 2 system error, 130 interrupted. Interrupted
// is not a core error kind: the ^C handler installed in run exits
// with 130 directly.
func exitCodeFor(err error) int {
	switch errs.KindOf(err) {
	case errs.NotFound, errs.Conflict, errs.InvalidInput, errs.AlreadyRunning:
		return 1
	case errs.SpawnFailed, errs.StopFailed, errs.CorruptState, errs.IOFailure:
		return 2
	default:
		return 1
	}
}
