// Package mapping holds the immutable table that maps region labels to the
// integer codes used by the vectorizers.
package mapping

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Reserved tokens every table must define.
const (
	NoData                = "no_data"
	Unknown               = "unknown"
	UnknownRegion         = "unknown_region"
	UnknownLabelledRegion = "unknown_labelled_region"
)

var reserved = []string{NoData, Unknown, UnknownRegion, UnknownLabelledRegion}

// ErrMalformed is returned when a mapping document cannot be used.
var ErrMalformed = errors.New("malformed region mapping")

//go:embed regions_mapping.json
var defaultMapping []byte

// Table maps labels to codes. It is never mutated after construction.
type Table struct {
	codes map[string]int
	width int
}

// Parse builds a table from a JSON object of label -> non-negative code.
func Parse(data []byte) (*Table, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return New(raw)
}

// New builds a table from a label -> code map.
func New(codes map[string]int) (*Table, error) {
	t := &Table{codes: make(map[string]int, len(codes))}
	max := -1
	for label, code := range codes {
		if code < 0 {
			return nil, fmt.Errorf("%w: negative code %d for %q", ErrMalformed, code, label)
		}
		t.codes[label] = code
		if code > max {
			max = code
		}
	}
	for _, token := range reserved {
		if _, ok := t.codes[token]; !ok {
			return nil, fmt.Errorf("%w: missing reserved label %q", ErrMalformed, token)
		}
	}
	t.width = max + 1
	return t, nil
}

// Load reads a table from a JSON file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region mapping: %w", err)
	}
	return Parse(data)
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := Parse(defaultMapping)
	if err != nil {
		panic(fmt.Sprintf("embedded region mapping: %v", err))
	}
	return t
}

// Code looks up the code of label.
func (t *Table) Code(label string) (int, bool) {
	code, ok := t.codes[label]
	return code, ok
}

// MustCode returns the code of a label known to be present, such as a reserved token.
func (t *Table) MustCode(label string) int {
	code, ok := t.codes[label]
	if !ok {
		panic(fmt.Sprintf("label %q not in region mapping", label))
	}
	return code
}

// LabelCode returns the code of a region label, falling back to
// unknown_labelled_region when the label is not mapped.
func (t *Table) LabelCode(label string) (int, bool) {
	if code, ok := t.codes[label]; ok {
		return code, true
	}
	return t.codes[UnknownLabelledRegion], false
}

// Width is the one-hot block size: the largest code plus one.
func (t *Table) Width() int {
	return t.width
}

// Labels returns every mapped label sorted by code, then by name.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.codes))
	for label := range t.codes {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := t.codes[labels[i]], t.codes[labels[j]]
		if ci != cj {
			return ci < cj
		}
		return labels[i] < labels[j]
	})
	return labels
}

// LabelsFor returns the labels mapped to code, sorted.
func (t *Table) LabelsFor(code int) []string {
	var labels []string
	for label, c := range t.codes {
		if c == code {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

var (
	loaded  *Table
	loadErr error
	once    sync.Once
)

// Once loads path the first time it is called and returns the same table on
// every later call. An empty path or a load failure yields the embedded
// default; the failure is returned alongside so the caller can report it.
func Once(path string) (*Table, error) {
	once.Do(func() {
		if path == "" {
			loaded = Default()
			return
		}
		loaded, loadErr = Load(path)
		if loadErr != nil {
			loaded = Default()
		}
	})
	return loaded, loadErr
}
