// Package sentinel wires the Store, Registry, Log Router and Restart
// Supervisor into a single App aggregate, instantiated once by the
// presentation layer and passed into every command — there is no
// package-level state anywhere in the module.
package sentinel

import (
	"os"
	"path/filepath"

	"github.com/loykin/sentinel/internal/envfile"
	"github.com/loykin/sentinel/internal/logs"
	"github.com/loykin/sentinel/internal/ports"
	"github.com/loykin/sentinel/internal/registry"
	"github.com/loykin/sentinel/internal/store"
	"github.com/loykin/sentinel/internal/supervisor"
)

// App bundles everything a command needs: the Registry, the Restart
// Supervisor built on top of it, and the state directory the Store and
// Log Router are rooted at.
type App struct {
	StateDir   string
	Registry   *registry.Registry
	Supervisor *supervisor.Supervisor
	Logs       *logs.Router
}

// DefaultStateDir is <HOME>/.sentinel, the conventional location; it
// can be overridden (tests use t.TempDir()).
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sentinel"), nil
}

// Open builds an App rooted at stateDir, creating the directory
// structure and loading the current catalog.
func Open(stateDir string) (*App, error) {
	st, err := store.NewFileStore(stateDir)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(st)
	if err != nil {
		return nil, err
	}
	router, err := logs.NewRouter(filepath.Join(stateDir, "logs"))
	if err != nil {
		return nil, err
	}
	return &App{
		StateDir:   stateDir,
		Registry:   reg,
		Supervisor: supervisor.New(reg, router),
		Logs:       router,
	}, nil
}

// AllocatePort delegates to the Registry, supplying the ports package's
// ephemeral-port picker as the fallback when no explicit port is given.
func (a *App) AllocatePort(port *int, name string) (registry.PortRecord, error) {
	return a.Registry.AllocatePort(port, name, ports.Pick)
}

// ResolveEnvFiles loads the global and project .env files:
// <stateDir>/.env (conventionally <HOME>/.sentinel/.env) then ./.env,
// in that order, each layering over the last. The run command always
// consults them and layers an explicit --env-file over the result.
// Either file being absent is not an error.
func ResolveEnvFiles(stateDir string) map[string]string {
	out := make(map[string]string)
	for _, path := range []string{filepath.Join(stateDir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if m, err := envfile.Load(path); err == nil {
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return out
}
