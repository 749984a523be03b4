package server

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

const defaultChunkSize = 1 << 20

// StreamHandler serves audio files from a music directory.
//
// GET /stream/{path...} honors a single Range header; HEAD answers with headers only.
// Paths are resolved with [os.OpenInRoot], so nothing outside the music directory is reachable.
type StreamHandler struct {
	dir       string
	chunkSize int
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewStreamHandler serves files from dir, writing bodies in chunkSize pieces (1 MiB when chunkSize <= 0).
func NewStreamHandler(dir string, chunkSize int, logger *log.Logger) *StreamHandler {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	h := &StreamHandler{dir: dir, chunkSize: chunkSize, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /{$}", h.Index)
	h.mux.HandleFunc("GET /tracks", h.ListTracks)
	h.mux.HandleFunc("GET /stream/{path...}", h.Stream)
	return h
}

// Routes implements [Handler]. GET patterns also match HEAD.
func (h *StreamHandler) Routes() []string {
	return []string{"GET /{$}", "GET /tracks", "GET /stream/{path...}"}
}

// ServeHTTP implements [http.Handler].
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type indexResponse struct {
	Message       string `json:"message"`
	List          string `json:"list"`
	StreamPattern string `json:"stream_pattern"`
}

func (h *StreamHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Message:       "Local audio server running",
		List:          "/tracks",
		StreamPattern: "/stream/<filename>",
	})
}

// TrackFile describes one audio file in the music directory.
type TrackFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Mime     string `json:"mime"`
	URL      string `json:"url"`
}

// ListTracks answers every audio file under the music directory, sorted by name ignoring case.
func (h *StreamHandler) ListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := ScanTracks(h.dir)
	if err != nil {
		h.logger.Error("failed to scan music directory", "dir", h.dir, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// ScanTracks walks dir for audio files, creating dir when it does not exist.
func ScanTracks(dir string) ([]TrackFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tracks := []TrackFile{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		mimeType, ok := audioType(p)
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		tracks = append(tracks, TrackFile{
			Filename: rel,
			Size:     info.Size(),
			Mime:     mimeType,
			URL:      "/stream/" + rel,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tracks, func(i, j int) bool {
		return strings.ToLower(tracks[i].Filename) < strings.ToLower(tracks[j].Filename)
	})
	return tracks, nil
}

// Stream serves a file whole (200) or a single byte range (206); an unusable range yields 416.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	f, size, err := h.open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("rejected stream path", "path", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	header := w.Header()
	header.Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		header.Set("Content-Type", contentType(name))
		header.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			h.copyChunks(w, f, 0, size)
		}
		return
	}

	br, err := parseRange(rangeHeader, size)
	if err != nil {
		header.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	header.Set("Content-Type", contentType(name))
	header.Set("Content-Range", br.ContentRange(size))
	header.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		h.copyChunks(w, f, br.Start, br.Length())
	}
}

// open resolves name inside the music directory and returns the file and its size.
func (h *StreamHandler) open(name string) (*os.File, int64, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return nil, 0, fs.ErrNotExist
	}

	f, err := os.OpenInRoot(h.dir, filepath.FromSlash(clean))
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, 0, fs.ErrNotExist
	}
	return f, info.Size(), nil
}

// copyChunks writes n bytes starting at offset in chunkSize pieces, flushing after each.
func (h *StreamHandler) copyChunks(w http.ResponseWriter, f *os.File, offset, n int64) {
	buf := make([]byte, min(int64(h.chunkSize), max(n, 1)))
	flusher, _ := w.(http.Flusher)
	section := io.NewSectionReader(f, offset, n)

	for {
		read, err := section.Read(buf)
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Error("stream read failed", "file", f.Name(), "error", err)
			}
			return
		}
	}
}

// contentType guesses the MIME type from the extension, defaulting to audio/mpeg.
func contentType(name string) string {
	if t, ok := audioType(name); ok {
		return t
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "audio/mpeg"
}

// audioType reports the MIME type of name when it is an audio file.
func audioType(name string) (string, bool) {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".mp3") {
		return "audio/mpeg", true
	}
	t := mime.TypeByExtension(ext)
	return t, strings.HasPrefix(t, "audio")
}
