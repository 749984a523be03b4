package server

import (
	"errors"
	"testing"

	"github.com/desertthunder/melodex/internal/shared"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tc := []struct {
		name   string
		header string
		start  int64
		end    int64
		valid  bool
	}{
		{name: "closed", header: "bytes=0-99", start: 0, end: 99, valid: true},
		{name: "open ended", header: "bytes=900-", start: 900, end: 999, valid: true},
		{name: "suffix", header: "bytes=-100", start: 900, end: 999, valid: true},
		{name: "suffix larger than file", header: "bytes=-5000", start: 0, end: 999, valid: true},
		{name: "last byte", header: "bytes=999-999", start: 999, end: 999, valid: true},
		{name: "end past file", header: "bytes=0-1000"},
		{name: "start past file", header: "bytes=1000-"},
		{name: "reversed", header: "bytes=50-10"},
		{name: "empty", header: "bytes=-"},
		{name: "zero suffix", header: "bytes=-0"},
		{name: "wrong unit", header: "items=0-1"},
		{name: "multiple ranges", header: "bytes=0-1,5-6"},
		{name: "garbage", header: "bytes=a-b"},
		{name: "no equals", header: "bytes"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseRange(tt.header, size)
			if !tt.valid {
				if !errors.Is(err, shared.ErrInvalidRange) {
					t.Errorf("expected ErrInvalidRange, got %v (%+v)", err, r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Start != tt.start || r.End != tt.end {
				t.Errorf("expected %d-%d, got %d-%d", tt.start, tt.end, r.Start, r.End)
			}
		})
	}

	t.Run("empty file", func(t *testing.T) {
		if _, err := parseRange("bytes=0-", 0); !errors.Is(err, shared.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange for empty file, got %v", err)
		}
	})

	t.Run("content range", func(t *testing.T) {
		r := byteRange{Start: 10, End: 19}
		if r.Length() != 10 || r.ContentRange(size) != "bytes 10-19/1000" {
			t.Errorf("unexpected %d %s", r.Length(), r.ContentRange(size))
		}
	})
}
