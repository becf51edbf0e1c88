package misc

import (
	"reflect"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name   string
		val    string
		def    string
		expect string
	}{
		{"value present", "bar", "zzz", "bar"},
		{"value trimmed", "  bar ", "zzz", "bar"},
		{"value empty -> default", "", "defv", "defv"},
		{"blank -> default", "   ", "defv", "defv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("X_FOO", tt.val)
			if got := Getenv("X_FOO", tt.def); got != tt.expect {
				t.Errorf("Getenv = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name   string
		val    string
		def    time.Duration
		expect time.Duration
	}{
		{"go syntax", "5s", 0, 5 * time.Second},
		{"plain seconds", "15", 0, 15 * time.Second},
		{"negative collapses", "-3", time.Second, 0},
		{"bad format -> default", "oops", 3 * time.Second, 3 * time.Second},
		{"empty -> default", "", 7 * time.Second, 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("X_DUR", tt.val)
			if got := GetDuration("X_DUR", tt.def); got != tt.expect {
				t.Errorf("GetDuration = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		val    string
		def    int
		expect int
	}{
		{"4", 1, 4},
		{"", 3, 3},
		{"x", 3, 3},
		{"-2", 3, -2},
	}
	for _, tt := range tests {
		t.Setenv("X_INT", tt.val)
		if got := GetInt("X_INT", tt.def); got != tt.expect {
			t.Errorf("GetInt(%q) = %d, want %d", tt.val, got, tt.expect)
		}
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		val    string
		def    bool
		expect bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"off", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("X_BOOL", tt.val)
		if got := GetBool("X_BOOL", tt.def); got != tt.expect {
			t.Errorf("GetBool(%q) = %v, want %v", tt.val, got, tt.expect)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" BV1, BV2,,BV3\tBV4 ")
	want := []string{"BV1", "BV2", "BV3", "BV4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	if out := SplitList(""); len(out) != 0 {
		t.Fatalf("SplitList(\"\") = %v, want empty", out)
	}
}
