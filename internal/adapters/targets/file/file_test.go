package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vshulcz/Viewpulse/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []domain.Target
		wantBad int
	}{
		{
			name: "single_line",
			in:   "BV1abc id1\n",
			want: []domain.Target{{ID: "id1", Params: "BV1abc"}},
		},
		{
			name:    "one_token_skipped",
			in:      "onlyonetoken\n",
			want:    nil,
			wantBad: 1,
		},
		{
			name:    "three_tokens_skipped",
			in:      "a b c\nhttps://x?bvid=BV2 BV2\n",
			want:    []domain.Target{{ID: "BV2", Params: "https://x?bvid=BV2"}},
			wantBad: 1,
		},
		{
			name: "blank_comment_and_tabs",
			in:   "\n# watched videos\n  u1\tBV1  \n\n",
			want: []domain.Target{{ID: "BV1", Params: "u1"}},
		},
		{
			name: "duplicate_id_last_wins_first_position",
			in:   "u1 A\nu2 B\nu3 A\n",
			want: []domain.Target{{ID: "A", Params: "u3"}, {ID: "B", Params: "u2"}},
		},
		{
			name: "no_trailing_newline",
			in:   "u1 A",
			want: []domain.Target{{ID: "A", Params: "u1"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, bad, err := Parse(strings.NewReader(tc.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
			if len(bad) != tc.wantBad {
				t.Fatalf("bad=%d want %d (%v)", len(bad), tc.wantBad, bad)
			}
			for _, b := range bad {
				if !errors.Is(b, domain.ErrConfig) {
					t.Fatalf("bad line error %v is not ErrConfig", b)
				}
			}
		})
	}
}

func TestSource_Load_RereadsEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	write := func(s string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	core, logs := observer.New(zapcore.WarnLevel)
	src := New(path, zap.New(core))

	write("u1 BV1\nbroken\n")
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "BV1" {
		t.Fatalf("first load = %+v", got)
	}
	if logs.FilterMessage("skipping target line").Len() != 1 {
		t.Fatalf("expected one skip warning, got %d", logs.Len())
	}

	write("u1 BV1\nu2 BV2\n")
	got, err = src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("second load = %+v, want 2 targets", got)
	}
}

func TestSource_Load_MissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "absent.txt"), nil)
	if _, err := src.Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v, want ErrNotExist", err)
	}
}
