package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/kikiluvv/regionswap/internal/frames"
)

// ExpandPattern returns one output path per variant name. A pattern without
// the token is accepted only for a single variant.
func ExpandPattern(pattern, token string, names []string) ([]string, error) {
	if token == "" {
		token = DefaultToken
	}
	if pattern == "" {
		return nil, fmt.Errorf("empty output pattern")
	}
	if !strings.Contains(pattern, token) {
		if len(names) > 1 {
			return nil, fmt.Errorf("%q with %d variants: %w %s", pattern, len(names), ErrPatternToken, token)
		}
		return []string{pattern}, nil
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = strings.ReplaceAll(pattern, token, name)
	}
	return paths, nil
}

// openSinks opens every output before any frame is written. On failure the
// sinks opened so far are closed again.
func openSinks(open SinkFactory, names, paths []string) ([]frames.Sink, error) {
	sinks := make([]frames.Sink, 0, len(names))
	for i, name := range names {
		s, err := open(name, paths[i])
		if err != nil {
			return nil, multierr.Append(
				fmt.Errorf("open output %s: %w", paths[i], err),
				closeSinks(sinks),
			)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func closeSinks(sinks []frames.Sink) error {
	var err error
	for _, s := range sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
