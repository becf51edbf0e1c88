// Package file appends cycle reports to a JSON Lines file.
package file

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/vshulcz/Viewpulse/internal/services/report"
)

// Writer opens the file per event so external rotation is picked up.
type Writer struct {
	path string
	mu   sync.Mutex
}

var _ report.Observer = (*Writer)(nil)

func New(path string) *Writer {
	return &Writer{path: path}
}

// Notify appends evt as one line.
func (w *Writer) Notify(_ context.Context, evt report.Event) (retErr error) {
	if w == nil || w.path == "" {
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close report file: %w", cerr)
		}
	}()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}
