package file

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vshulcz/Viewpulse/internal/services/report"
)

func TestWriter_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.jsonl")
	w := New(path)

	online := int64(12)
	evts := []report.Event{
		{Cycle: 1, StartedAt: time.Unix(100, 0).UTC(), Targets: 1, Pushed: true,
			Videos: []report.Video{{BVID: "BV1", Title: "t", Views: 5, Online: &online}}},
		{Cycle: 2, Targets: 1, Failed: []string{"BV1"}, PushError: "sink push failed"},
	}
	for _, e := range evts {
		if err := w.Notify(context.Background(), e); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []report.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e report.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("lines=%d want 2", len(got))
	}
	if got[0].Videos[0].Online == nil || *got[0].Videos[0].Online != 12 {
		t.Fatalf("first line = %+v", got[0])
	}
	if got[1].PushError != "sink push failed" || got[1].Failed[0] != "BV1" {
		t.Fatalf("second line = %+v", got[1])
	}
}

func TestWriter_EmptyPathIsNoop(t *testing.T) {
	if err := New("").Notify(context.Background(), report.Event{}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	var w *Writer
	if err := w.Notify(context.Background(), report.Event{}); err != nil {
		t.Fatalf("nil Notify: %v", err)
	}
}

func TestWriter_OpenError(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "r.jsonl"))
	if err := w.Notify(context.Background(), report.Event{}); err == nil {
		t.Fatal("expected open error")
	}
}
