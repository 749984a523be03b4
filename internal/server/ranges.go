package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/melodex/internal/shared"
)

// byteRange is an inclusive byte span within a file.
type byteRange struct {
	Start int64
	End   int64
}

func (b byteRange) Length() int64 {
	return b.End - b.Start + 1
}

func (b byteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.Start, b.End, size)
}

// parseRange parses a single-range header of the form "bytes=a-b", "bytes=a-" or "bytes=-n".
//
// Unlike RFC 9110, an end beyond the file is rejected rather than clamped, and multiple ranges are not supported.
// Any failure wraps [shared.ErrInvalidRange].
func parseRange(header string, size int64) (byteRange, error) {
	units, spec, found := strings.Cut(header, "=")
	if !found || strings.TrimSpace(units) != "bytes" {
		return byteRange{}, fmt.Errorf("%w: unsupported unit in %q", shared.ErrInvalidRange, header)
	}

	startStr, endStr, _ := strings.Cut(spec, "-")
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)
	if startStr == "" && endStr == "" {
		return byteRange{}, fmt.Errorf("%w: empty range", shared.ErrInvalidRange)
	}

	var r byteRange
	if startStr != "" {
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return byteRange{}, fmt.Errorf("%w: bad start %q", shared.ErrInvalidRange, startStr)
		}
		r.Start = start
		r.End = size - 1
		if endStr != "" {
			end, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return byteRange{}, fmt.Errorf("%w: bad end %q", shared.ErrInvalidRange, endStr)
			}
			r.End = end
		}
	} else {
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return byteRange{}, fmt.Errorf("%w: bad suffix %q", shared.ErrInvalidRange, endStr)
		}
		r.Start = max(size-suffix, 0)
		r.End = size - 1
	}

	if r.Start < 0 || r.End < r.Start || r.End >= size {
		return byteRange{}, fmt.Errorf("%w: %d-%d outside %d bytes", shared.ErrInvalidRange, r.Start, r.End, size)
	}
	return r, nil
}
