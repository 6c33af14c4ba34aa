// Package logs is the log router: it opens the append-mode stdout/
// stderr sink files a spawned process's output is wired to, and lets
// the CLI clear them. Rotation, shipping and structured parsing of
// child output are explicitly out of scope — each sink is a plain
// file the child process writes to directly.
package logs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/sentinel/internal/errs"
)

// Router resolves and opens the log files for a given state directory,
// conventionally <state_dir>/logs.
type Router struct {
	dir string
}

// NewRouter returns a Router rooted at dir, creating it if absent.
func NewRouter(dir string) (*Router, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.New(errs.IOFailure, dir, err)
	}
	return &Router{dir: dir}, nil
}

// StdoutPath and StderrPath are the deterministic, unique paths for a
// process's log files, derived from its name alone (names are unique
// in the catalog, so no collision is possible).
func (r *Router) StdoutPath(name string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.stdout.log", name))
}

func (r *Router) StderrPath(name string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.stderr.log", name))
}

// Open opens (creating if needed) the stdout and stderr sink files for
// name in append mode, suitable for wiring directly to exec.Cmd.Stdout
// / .Stderr. Callers are responsible for closing both; they may do so
// as soon as the child has started, since it holds its own copies.
func (r *Router) Open(name string) (stdout, stderr *os.File, err error) {
	outPath := r.StdoutPath(name)
	errPath := r.StderrPath(name)

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, errs.New(errs.IOFailure, outPath, err)
	}
	errf, err := os.OpenFile(errPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		_ = out.Close()
		return nil, nil, errs.New(errs.IOFailure, errPath, err)
	}
	return out, errf, nil
}

// Clear truncates both sink files for name. Either file not existing
// yet is not an error.
func (r *Router) Clear(name string) error {
	for _, path := range []string{r.StdoutPath(name), r.StderrPath(name)} {
		if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
			return errs.New(errs.IOFailure, path, err)
		}
	}
	return nil
}
