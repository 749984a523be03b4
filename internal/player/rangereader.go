package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/melodex/internal/shared"
)

const defaultWindow = 256 << 10

// RangeReader is an [io.ReadSeeker] over a remote file fetched with HTTP Range requests.
//
// It keeps one window of the file in memory; reads and seeks inside the window do not hit the network.
type RangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string
	window int

	size   int64
	off    int64
	buf    []byte
	bufOff int64
	head   []byte
}

// NewRangeReader fetches the first window of url to learn the file size.
// A server without range support answers 200 and the whole body is kept in memory.
func NewRangeReader(ctx context.Context, client *http.Client, url string, window int) (*RangeReader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if window <= 0 {
		window = defaultWindow
	}

	r := &RangeReader{ctx: ctx, client: client, url: url, window: window, size: -1}
	if err := r.fetch(0); err != nil {
		return nil, err
	}
	r.head = r.buf
	return r, nil
}

// Size is the total length of the remote file.
func (r *RangeReader) Size() int64 {
	return r.size
}

// Head is the first window of the file, as fetched when the reader was opened.
func (r *RangeReader) Head() []byte {
	return r.head
}

func (r *RangeReader) Read(p []byte) (int, error) {
	if r.off >= r.size {
		return 0, io.EOF
	}
	if r.off < r.bufOff || r.off >= r.bufOff+int64(len(r.buf)) {
		if err := r.fetch(r.off); err != nil {
			return 0, err
		}
	}

	n := copy(p, r.buf[r.off-r.bufOff:])
	r.off += int64(n)
	return n, nil
}

func (r *RangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", shared.ErrInvalidArgument, whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("%w: negative position", shared.ErrInvalidArgument)
	}
	r.off = abs
	return abs, nil
}

// fetch loads the window starting at off.
func (r *RangeReader) fetch(off int64) error {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	end := off + int64(r.window) - 1
	if r.size >= 0 {
		end = min(end, r.size-1)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return err
		}
		buf, err := io.ReadAll(io.LimitReader(resp.Body, int64(r.window)))
		if err != nil {
			return fmt.Errorf("failed to read range: %w", err)
		}
		r.size, r.buf, r.bufOff = total, buf, start
	case http.StatusOK:
		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		r.size, r.buf, r.bufOff = int64(len(buf)), buf, 0
	case http.StatusRequestedRangeNotSatisfiable:
		_, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return err
		}
		if r.size < 0 && off < total {
			// Some servers reject ranges that run past the end; retry with the size now known.
			r.size = total
			return r.fetch(off)
		}
		if total > 0 && off < total {
			return fmt.Errorf("%w: server rejected bytes=%d-%d of %d", shared.ErrInvalidRange, off, end, total)
		}
		r.size, r.buf, r.bufOff = total, nil, off
	case http.StatusNotFound:
		return fmt.Errorf("%w (status 404): %w: %s", shared.ErrAPIRequest, shared.ErrTrackNotFound, r.url)
	default:
		return fmt.Errorf("%w (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, r.url)
	}
	return nil
}

// parseContentRange reads "bytes a-b/size" or "bytes */size" and returns a and size.
func parseContentRange(v string) (start, total int64, err error) {
	spec, ok := strings.CutPrefix(v, "bytes ")
	if !ok {
		return 0, 0, fmt.Errorf("%w: content-range %q", shared.ErrMalformedPayload, v)
	}
	rng, size, ok := strings.Cut(spec, "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: content-range %q", shared.ErrMalformedPayload, v)
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: content-range %q", shared.ErrMalformedPayload, v)
	}
	if rng == "*" {
		return 0, total, nil
	}
	first, _, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: content-range %q", shared.ErrMalformedPayload, v)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: content-range %q", shared.ErrMalformedPayload, v)
	}
	return start, total, nil
}

var _ io.ReadSeeker = (*RangeReader)(nil)

// isCanceled reports cancellation, which is never shown to the user.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrSuperseded)
}
