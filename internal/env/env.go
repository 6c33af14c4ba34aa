// Package env composes the three-layer environment overlay a spawned
// process receives: the ambient OS environment, a group's overlay (if
// the process belongs to one), then the process's own overlay, each
// layer overriding the last by key. The composed map is expanded for
// ${VAR} references against itself before being handed to the process
// engine.
package env

import (
	"os"
	"strings"
)

// FromOS snapshots the current process's environment as a map.
func FromOS() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			if k := kv[:i]; k != "" {
				out[k] = kv[i+1:]
			}
		}
	}
	return out
}

// Merge layers ambient, then group, then proc (each may be nil), later
// layers overriding earlier ones by key, and expands ${VAR} references
// in the result against the composed map. Expansion is a single,
// non-recursive pass: a value that itself contains an unresolved
// ${VAR} after one pass is left as-is rather than looped to a fixpoint.
func Merge(ambient, group, proc map[string]string) map[string]string {
	m := make(map[string]string, len(ambient)+len(group)+len(proc))
	for _, layer := range []map[string]string{ambient, group, proc} {
		for k, v := range layer {
			if k == "" {
				continue
			}
			m[k] = v
		}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = expand(v, m)
	}
	return out
}

// ToSlice renders a composed environment map as "K=V" pairs suitable
// for exec.Cmd.Env.
func ToSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

func expand(s string, m map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			break
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			break
		}
		end := i + 3 + j
		b.WriteString(s[:i])
		if v, ok := m[s[i+2:end-1]]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i:end])
		}
		s = s[end:]
	}
	b.WriteString(s)
	return b.String()
}
