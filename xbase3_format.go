package xbase3

import (
	"strings"

	"github.com/mkfoss/xbase3/internal/styles"
)

// FormatError renders err the way an interactive driver displays a
// failed command: a bold red line prefixed with a cross mark. Run and
// RunScript never call this themselves, since a library has no
// business coloring a caller's error value — it's here for a REPL or
// CLI driver built on top of DB to use on the error it gets back.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return styles.Error(err.Error())
}

// FormatListHeader renders the column names above a LIST/DISPLAY
// result the way an interactive driver would: a styled header line
// followed by the field names in bold, space-separated.
func FormatListHeader(title string, fields []string) string {
	return styles.Header(title) + "\n" + styles.Bold(strings.Join(fields, "  "))
}

// FormatSeekStatus renders the outcome of the most recent SEEK/FIND:
// green "Found" on a match, orange "Not found" otherwise.
func FormatSeekStatus(found bool) string {
	if found {
		return styles.Success("Found")
	}
	return styles.Warning("Not found")
}

// SeekStatusLine is a convenience wrapper combining db.Found() with
// FormatSeekStatus, for a driver that wants one call after SEEK/FIND.
func (db *DB) SeekStatusLine() string {
	return FormatSeekStatus(db.Found())
}
