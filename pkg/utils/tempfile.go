// Package utils contains some common utilities used by all other packages.
package utils

import (
	"fmt"
	"os"
	"strings"
)

// TempFile is a file in the temp directory owned by one operation.
// Call Remove when done, it is safe to call more than once.
type TempFile struct {
	Path string
}

// WriteTempFile writes lines, newline separated, to a new temp file whose
// name follows pattern (see os.CreateTemp).
func WriteTempFile(pattern string, lines []string) (*TempFile, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("could not create temp file: %w", err)
	}
	tf := &TempFile{Path: f.Name()}
	if _, err := f.WriteString(strings.Join(lines, "\n")); err != nil {
		_ = f.Close()
		tf.Remove()
		return nil, fmt.Errorf("could not write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		tf.Remove()
		return nil, fmt.Errorf("could not write temp file: %w", err)
	}
	return tf, nil
}

// Remove deletes the file. A nil *TempFile is a no-op.
func (t *TempFile) Remove() {
	if t == nil {
		return
	}
	RemoveAndLog(t.Path)
}

// Unique returns values with duplicates removed, keeping first occurrences.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// QuoteIdentifier quotes a MySQL identifier with backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
