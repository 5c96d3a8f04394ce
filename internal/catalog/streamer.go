package catalog

import (
	"context"
	"errors"
	"fmt"
	"forumdl/internal/components/chrono"
	"forumdl/internal/components/telemetry"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const report_file_streamer_save = "file_streamer.save"

// Saved describes the outcome of FileStreamer.Save.
type Saved struct {
	Path  string
	Bytes int64
	// Elapsed is zero when the file was skipped.
	Elapsed time.Duration
	Skipped bool
}

// FileStreamer writes download streams into a destination folder.
type FileStreamer struct {
	clock chrono.TimeAPI
	tel   telemetry.API
}

func NewFileStreamer(clock chrono.TimeAPI, tel telemetry.API) FileStreamer {
	return FileStreamer{clock: clock, tel: tel}
}

// SafeFilename reduces a server provided filename to something that can only ever land inside
// the destination folder.
func SafeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filepath.Clean("/" + filename))
	if filename == "/" || filename == "." || filename == ".." {
		return ""
	}
	return filename
}

// Save streams into `destFolder/filename`. If that file already exists the stream is closed
// without being read and the existing path is returned.
func (s FileStreamer) Save(ctx context.Context, stream io.ReadCloser, filename, destFolder string) (Saved, error) {
	defer stream.Close()

	name := SafeFilename(filename)
	if name == "" {
		return Saved{}, invalidArgument("unusable filename %q", filename)
	}
	path := filepath.Join(destFolder, name)

	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		s.tel.ReportDebug(report_file_streamer_save, "skipping existing file", path)
		return Saved{Path: path, Bytes: info.Size(), Skipped: true}, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Saved{}, &StreamError{Path: path, Err: err}
	}

	err = os.MkdirAll(destFolder, 0755)
	if err != nil {
		return Saved{}, &StreamError{Path: path, Err: err}
	}

	start := s.clock.Now()
	tmp, err := os.CreateTemp(destFolder, fmt.Sprintf(".%s-*.part", name))
	if err != nil {
		return Saved{}, &StreamError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, contextReader{ctx: ctx, reader: stream})
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		streamErr := &StreamError{Path: path, Err: err}
		s.tel.ReportBroken(report_file_streamer_save, streamErr)
		return Saved{}, streamErr
	}

	elapsed := s.clock.Now().Sub(start)
	s.tel.ReportDebug(report_file_streamer_save, path, written, elapsed.String())
	return Saved{Path: path, Bytes: written, Elapsed: elapsed}, nil
}

// contextReader stops a copy once the context is done.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(p)
}
