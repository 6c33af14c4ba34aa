package registry

import (
	"strconv"
	"strings"

	"github.com/loykin/sentinel/internal/errs"
)

func notFound(selector string) error { return errs.New(errs.NotFound, selector, nil) }

func conflict(kind, key string) error { return errs.New(errs.Conflict, kind+":"+key, nil) }

func invalid(reason string) error { return errs.New(errs.InvalidInput, reason, nil) }

// parseSelector reports whether sel looks like a decimal process ID, and
// the parsed value if so. A selector is never partially matched: it is
// either an exact decimal ID or an exact name.
func parseSelector(sel string) (id int64, isID bool) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(sel, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
