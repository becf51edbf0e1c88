// Package file reads the target list from a flat text file on every cycle.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/internal/ports"
)

// Source re-reads path on each Load so edits apply from the next cycle.
type Source struct {
	path string
	log  *zap.Logger
}

var _ ports.TargetSource = (*Source)(nil)

func New(path string, log *zap.Logger) *Source {
	return &Source{path: path, log: logging.OrNop(log)}
}

// Load opens and parses the file. Unusable lines are logged and skipped.
func (s *Source) Load(_ context.Context) (_ []domain.Target, retErr error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open targets: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close targets: %w", cerr)
		}
	}()

	targets, bad, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	for _, b := range bad {
		s.log.Warn("skipping target line", zap.String("file", s.path), zap.Error(b))
	}
	return targets, nil
}

// Parse reads "<url-or-param> <identifier>" lines. Blank lines and lines
// starting with '#' are ignored. A later line for the same identifier
// replaces the earlier params but keeps the earlier position.
// Lines without exactly two fields come back as ErrConfig errors.
func Parse(r io.Reader) ([]domain.Target, []error, error) {
	var (
		out   []domain.Target
		bad   []error
		index = map[string]int{}
	)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			bad = append(bad, fmt.Errorf("%w: line %d: want 2 fields, got %d", domain.ErrConfig, n, len(fields)))
			continue
		}
		t := domain.Target{ID: fields[1], Params: fields[0]}
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, bad, err
	}
	return out, bad, nil
}
