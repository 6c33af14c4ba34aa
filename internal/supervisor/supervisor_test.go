package supervisor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/sentinel/internal/engine"
	"github.com/loykin/sentinel/internal/logs"
	"github.com/loykin/sentinel/internal/registry"
	"github.com/loykin/sentinel/internal/store"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	require.NoError(t, err)
	reg, err := registry.New(st)
	require.NoError(t, err)
	router, err := logs.NewRouter(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	return New(reg, router)
}

func TestSweepAllRespawnsDeadRestartFlagged(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor(t)

	res, err := engine.Spawn(engine.SpawnInput{Command: "true"})
	require.NoError(t, err)
	rec, err := sup.Registry.AddProcess(registry.ProcessRecord{
		Name:      "r1",
		Command:   "true",
		PID:       res.PID,
		StartedAt: res.StartedAt,
		Restart:   true,
	})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for engine.Exists(rec.PID, rec.StartedAt) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, sup.SweepAll())

	updated, err := sup.Registry.FindProcess("r1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, rec.Name, updated.Name)
	assert.NotEqual(t, rec.PID, updated.PID, "expected a new pid after respawn")
	defer func() { _, _ = engine.Stop(updated.PID, updated.StartedAt, true) }()
}

func TestSweepAllSkipsNonRestartFlagged(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor(t)

	rec, err := sup.Registry.AddProcess(registry.ProcessRecord{
		Name:    "r2",
		Command: "true",
		PID:     1 << 30, // never a real PID
		Restart: false,
	})
	require.NoError(t, err)
	require.NoError(t, sup.SweepAll())

	after, err := sup.Registry.FindProcess("r2")
	require.NoError(t, err)
	assert.Equal(t, rec.PID, after.PID, "non-restart record should not have been respawned")
}

func TestGroupStartAllAndStopAll(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor(t)

	_, err := sup.Registry.AddGroup("w", map[string]string{"X": "1"})
	require.NoError(t, err)
	rec, err := sup.Registry.AddProcess(registry.ProcessRecord{
		Name:    "w1",
		Command: "sleep 30",
		Group:   "w",
	})
	require.NoError(t, err)

	require.NoError(t, sup.StartAll("w"))
	started, err := sup.Registry.FindProcess("w1")
	require.NoError(t, err)
	assert.NotEqual(t, rec.PID, started.PID, "expected StartAll to spawn the member")
	assert.True(t, engine.Exists(started.PID, started.StartedAt), "expected member to be alive after StartAll")

	require.NoError(t, sup.StopAll("w", true))
	assert.False(t, engine.Exists(started.PID, started.StartedAt), "expected member to be dead after StopAll")
}

func TestRespawnAppliesStoredEnvAndRoutesStdout(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor(t)

	rec, err := sup.Registry.AddProcess(registry.ProcessRecord{
		Name:    "envy",
		Command: "printenv X",
		Env:     map[string]string{"X": "1"},
	})
	require.NoError(t, err)

	require.NoError(t, sup.respawn(rec))

	respawned, err := sup.Registry.FindProcess("envy")
	require.NoError(t, err)
	deadline := time.Now().Add(2 * time.Second)
	for engine.Exists(respawned.PID, respawned.StartedAt) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	data, err := os.ReadFile(sup.Logs.StdoutPath("envy"))
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(data))
}

func TestDeleteGroupDetachesMembers(t *testing.T) {
	sup := newTestSupervisor(t)
	_, err := sup.Registry.AddGroup("g", nil)
	require.NoError(t, err)
	_, err = sup.Registry.AddProcess(registry.ProcessRecord{Name: "m1", Command: "true", Group: "g"})
	require.NoError(t, err)

	require.NoError(t, sup.DeleteGroup("g", false))

	m, err := sup.Registry.FindProcess("m1")
	require.NoError(t, err)
	assert.Empty(t, m.Group, "expected member detached")

	_, err = sup.Registry.FindGroup("g")
	assert.Error(t, err, "expected group to be gone")
}

func TestDaemonStartStatusStop(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()

	// DaemonStart re-execs os.Executable(), which under `go test` is
	// the test binary itself; pass -test.run '^$' so the re-exec'd
	// instance runs no tests and exits immediately instead of running
	// the real test suite again.
	pid, err := DaemonStart(dir, []string{"-test.run", "^$"}, "")
	require.NoError(t, err)
	assert.Greater(t, pid, 0)

	_, err = os.Stat(filepath.Join(dir, "daemon.pid"))
	require.NoError(t, err, "expected pid file to exist")

	_, _, err = DaemonStatus(dir)
	require.NoError(t, err)

	require.NoError(t, DaemonStop(dir))
	_, err = os.Stat(filepath.Join(dir, "daemon.pid"))
	assert.True(t, os.IsNotExist(err), "expected pid file removed after stop")
}

func TestDaemonStartRefusesWhenAlreadyRunning(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	// PID 1 always exists; the liveness probe treats EPERM as alive,
	// so it reads as a running daemon whether or not we can signal it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daemon.pid"), []byte("1"), 0o600))
	_, err := DaemonStart(dir, nil, "")
	assert.Error(t, err, "expected AlreadyRunning")
}
