// Package metadata reads, merges and writes the metadata file that mydumper
// leaves in its output directory.
//
// The file is a sequence of groups. A group starts with a header line such as
// "[config]" and owns every following line up to the next header. Lines
// starting with '#' are comments and empty lines carry no meaning.
package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileName is the name mydumper gives the metadata file inside --outputdir.
const FileName = "metadata"

// Groups that describe the session of a single mydumper run. Only the run
// that is merged first may contribute them.
const (
	ConfigGroup           = "[config]"
	SessionVariablesGroup = "[myloader_session_variables]"
)

// FormatError is returned when a metadata file can not be parsed.
type FormatError struct {
	Path string // empty when parsed from a reader
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid mydumper metadata: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("invalid mydumper metadata file %s: line %d: %s", e.Path, e.Line, e.Msg)
}

// Metadata is an ordered mapping of group header to the raw lines of that group.
// The zero value is empty and ready to use.
type Metadata struct {
	order []string
	lines map[string][]string
}

// New returns an empty Metadata.
func New() *Metadata {
	return &Metadata{}
}

// Groups returns the group headers in the order they were first seen.
func (m *Metadata) Groups() []string {
	return append([]string(nil), m.order...)
}

// Has reports whether the group header exists.
func (m *Metadata) Has(group string) bool {
	_, ok := m.lines[group]
	return ok
}

// Lines returns a copy of the lines of a group.
func (m *Metadata) Lines(group string) []string {
	return append([]string(nil), m.lines[group]...)
}

// Len returns the number of groups.
func (m *Metadata) Len() int {
	return len(m.order)
}

// Open selects a group, creating it at the end of the order if needed.
// Opening an existing group keeps its lines.
func (m *Metadata) Open(group string) {
	if m.lines == nil {
		m.lines = make(map[string][]string)
	}
	if _, ok := m.lines[group]; ok {
		return
	}
	m.order = append(m.order, group)
	m.lines[group] = nil
}

// Append adds lines to a group, opening it first.
func (m *Metadata) Append(group string, lines ...string) {
	m.Open(group)
	m.lines[group] = append(m.lines[group], lines...)
}

// Delete removes a group and its lines. Deleting a missing group is a no-op.
func (m *Metadata) Delete(group string) {
	if _, ok := m.lines[group]; !ok {
		return
	}
	delete(m.lines, group)
	for i, g := range m.order {
		if g == group {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	c := New()
	for _, group := range m.order {
		c.Append(group, m.lines[group]...)
	}
	return c
}

// Parse reads the metadata file at path.
func Parse(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open metadata file: %w", err)
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return m, nil
}

// Read parses metadata from r.
func Read(r io.Reader) (*Metadata, error) {
	m := New()
	var group string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			group = line
			m.Open(group)
			continue
		}
		if group == "" {
			return nil, &FormatError{Line: lineNo, Msg: "line outside any group"}
		}
		m.lines[group] = append(m.lines[group], line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read metadata: %w", err)
	}
	return m, nil
}

// Bytes serializes m. Every group is written as its header, its lines and a
// blank separator line.
func (m *Metadata) Bytes() []byte {
	var parts []string
	for _, group := range m.order {
		parts = append(parts, group)
		parts = append(parts, m.lines[group]...)
		parts = append(parts, "")
	}
	return []byte(strings.Join(parts, "\n"))
}

// WriteTo writes the serialized form of m to w.
func (m *Metadata) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Bytes())
	return int64(n), err
}

// WriteFile overwrites path with the serialized form of m, keeping the mode
// of an existing file.
func WriteFile(path string, m *Metadata) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.WriteFile(path, m.Bytes(), mode); err != nil {
		return fmt.Errorf("could not write metadata file: %w", err)
	}
	return nil
}
