package engine

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestSpawnAndExists(t *testing.T) {
	requireUnix(t)
	res, err := Spawn(SpawnInput{Command: "sleep 2"})
	require.NoError(t, err)
	defer func() { _, _ = Stop(res.PID, res.StartedAt, true) }()

	assert.True(t, Exists(res.PID, res.StartedAt), "expected spawned process to exist")
}

func TestSpawnRejectsUnknownBinary(t *testing.T) {
	requireUnix(t)
	_, err := Spawn(SpawnInput{Command: "/no/such/binary-xyz"})
	require.Error(t, err, "expected SpawnFailed for missing binary")
}

func TestStopGracefulThenEscalates(t *testing.T) {
	requireUnix(t)
	res, err := Spawn(SpawnInput{Command: "sleep 30"})
	require.NoError(t, err)

	outcome, err := Stop(res.PID, res.StartedAt, false)
	require.NoError(t, err)
	assert.Equal(t, Stopped, outcome)
	assert.False(t, Exists(res.PID, res.StartedAt), "expected process to be gone after Stop")
}

func TestStopOnDeadPIDIsAlreadyDead(t *testing.T) {
	requireUnix(t)
	res, err := Spawn(SpawnInput{Command: "true"})
	require.NoError(t, err)

	// Let the short-lived child exit on its own.
	deadline := time.Now().Add(2 * time.Second)
	for Exists(res.PID, res.StartedAt) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	outcome, err := Stop(res.PID, res.StartedAt, false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyDead, outcome)
}

func TestExistsDetectsRecycledPIDByStartTime(t *testing.T) {
	requireUnix(t)
	// A live process (us) whose recorded start time is wildly wrong
	// must be treated as a different process.
	fakeStart := time.Now().Add(-time.Hour)
	assert.False(t, Exists(os.Getpid(), fakeStart), "expected start-time mismatch to be treated as death")
}

func TestStatusReportsDeadPIDAsZeroMetrics(t *testing.T) {
	m := Status(1<<30, time.Now())
	assert.False(t, m.Exists)
	assert.Zero(t, m.CPUPercent)
	assert.Zero(t, m.MemBytes)
}

func TestBuildCommandHonorsExplicitShell(t *testing.T) {
	cmd := buildCommand("sh -c 'echo hi'")
	require.GreaterOrEqual(t, len(cmd.Args), 3)
	assert.Equal(t, "-c", cmd.Args[1])
	assert.Equal(t, "echo hi", cmd.Args[2])
}

func TestBuildCommandWrapsMetacharacters(t *testing.T) {
	cmd := buildCommand("echo $HOME")
	assert.Equal(t, "/bin/sh", cmd.Args[0])
}

func TestBuildCommandPlainArgs(t *testing.T) {
	cmd := buildCommand("printenv X")
	require.GreaterOrEqual(t, len(cmd.Args), 2)
	assert.Equal(t, "printenv", cmd.Args[0])
	assert.Equal(t, "X", cmd.Args[1])
}
