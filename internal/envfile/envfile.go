// Package envfile parses KEY=VALUE env files (the ".env" format), used
// for a process's --env-file and the global/project .env files. It
// mirrors the loading
// half of a dotenv-style loader: no shell substitution, no export
// tracking across lines — just line-oriented KEY=VALUE pairs.
package envfile

import (
	"bufio"
	"os"
	"strings"

	"github.com/loykin/sentinel/internal/errs"
)

// Load reads path and parses it into a map. A missing file is an
// error — unlike the ambient OS environment, a configured env_file is
// expected to exist.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.IOFailure, path, err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		k, v, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		out[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(errs.IOFailure, path, err)
	}
	return out, nil
}

// parseLine parses a single env-file line. Blank lines, lines whose
// first non-whitespace rune is '#', and lines without an '=' are
// skipped (ok=false). A leading "export " is tolerated. Values may be
// wrapped in matching single or double quotes, which are stripped.
func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	line = strings.TrimSpace(line)

	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(line[i+1:])
	value = unquote(value)
	return key, value, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
