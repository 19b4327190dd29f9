package variants

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// DefaultName names the single variant of a shorthand payload.
const DefaultName = "default"

var (
	// ErrMalformedRecord marks a payload list line that is not name,payload.
	ErrMalformedRecord = errors.New("malformed payload record")
	// ErrDuplicateName marks two records with the same variant name; their
	// outputs would overwrite each other.
	ErrDuplicateName = errors.New("duplicate variant name")
	// ErrEmptyList is returned for a list without any records.
	ErrEmptyList = errors.New("payload list is empty")
)

// Payload is the named input of one variant.
type Payload struct {
	Name string
	Data string
}

// RecordError reports the offending line of a payload list.
type RecordError struct {
	Line int
	Text string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ParseList reads newline-delimited name,payload records. Blank lines are
// skipped. The payload is everything after the first comma, so payloads may
// contain commas themselves.
func ParseList(r io.Reader) ([]Payload, error) {
	var out []Payload
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		name, data, found := strings.Cut(text, ",")
		name, data = strings.TrimSpace(name), strings.TrimSpace(data)
		if !found || name == "" || data == "" {
			return nil, &RecordError{Line: line, Text: text, Err: ErrMalformedRecord}
		}
		if first, dup := seen[name]; dup {
			return nil, &RecordError{
				Line: line,
				Text: text,
				Err:  fmt.Errorf("%w %q (first on line %d)", ErrDuplicateName, name, first),
			}
		}
		seen[name] = line
		out = append(out, Payload{Name: name, Data: data})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read payload list: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyList
	}
	return out, nil
}

// Load resolves a url-or-csv argument. An existing file is parsed as a
// payload list; a missing path ending in .csv is an I/O error; anything else
// is a single payload named DefaultName.
func Load(arg string) ([]Payload, error) {
	if arg == "" {
		return nil, ErrEmptyList
	}
	f, err := os.Open(arg)
	switch {
	case err == nil:
		defer f.Close()
		list, err := ParseList(f)
		if err != nil {
			return nil, fmt.Errorf("payload list %s: %w", arg, err)
		}
		return list, nil
	case strings.EqualFold(filepath.Ext(arg), ".csv"):
		return nil, fmt.Errorf("open payload list: %w", err)
	default:
		return []Payload{{Name: DefaultName, Data: arg}}, nil
	}
}

// Names returns the variant names in list order.
func Names(payloads []Payload) []string {
	return lo.Map(payloads, func(p Payload, _ int) string { return p.Name })
}
