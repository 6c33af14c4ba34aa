package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLayering(t *testing.T) {
	ambient := map[string]string{"PATH": "/usr/bin", "HOME": "/root"}
	group := map[string]string{"PATH": "/opt/bin", "STAGE": "prod"}
	proc := map[string]string{"STAGE": "canary"}

	got := Merge(ambient, group, proc)

	assert.Equal(t, "/opt/bin", got["PATH"], "group should override ambient")
	assert.Equal(t, "canary", got["STAGE"], "proc should override group")
	assert.Equal(t, "/root", got["HOME"], "ambient-only key should survive")
}

func TestMergeExpandsPlaceholders(t *testing.T) {
	ambient := map[string]string{"BASE": "/srv/app"}
	proc := map[string]string{"LOG_DIR": "${BASE}/logs"}

	got := Merge(ambient, nil, proc)

	assert.Equal(t, "/srv/app/logs", got["LOG_DIR"])
}

func TestMergeLeavesUnresolvedPlaceholder(t *testing.T) {
	got := Merge(nil, nil, map[string]string{"X": "${MISSING}"})
	assert.Equal(t, "${MISSING}", got["X"])
}

func TestMergeSkipsEmptyKeys(t *testing.T) {
	got := Merge(map[string]string{"": "x"}, nil, nil)
	_, ok := got[""]
	assert.False(t, ok, "empty key should be dropped")
}

func TestToSliceRoundTrip(t *testing.T) {
	m := map[string]string{"A": "1", "B": "2"}
	sl := ToSlice(m)
	assert.ElementsMatch(t, []string{"A=1", "B=2"}, sl)
}
