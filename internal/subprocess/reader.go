package subprocess

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"io"
	"time"
	"unicode/utf8"

	"github.com/wagiedev/spx-launcher-go/internal/output"
)

const (
	// maxLineSize is the longest output line delivered to the sink, not
	// counting its line ending. Longer lines are dropped whole and reading
	// resumes at the next newline.
	maxLineSize = 1024 * 1024 // 1MB

	// maxRawLineSize leaves room for a "\r\n" terminator.
	maxRawLineSize = maxLineSize + 2

	// readBufferSize is the bufio buffer for each output pipe.
	readBufferSize = 64 * 1024
)

// readLines delivers every line of r to the sink until end of stream.
//
// A line that is not valid UTF-8 or exceeds maxLineSize is skipped without
// ending the stream. A final line without a trailing newline is delivered.
// Returns nil on end of stream and the read error otherwise.
func (s *Supervisor) readLines(h *handle, stream output.Stream, r io.Reader) error {
	br := bufio.NewReaderSize(r, readBufferSize)

	var (
		line     []byte
		overflow bool
		count    int
		skipped  int
	)

	for {
		chunk, err := br.ReadSlice('\n')

		if !overflow {
			if len(line)+len(chunk) > maxRawLineSize {
				overflow = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}

		if stderrors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if err == nil || len(line) > 0 || overflow {
			if s.deliver(h, stream, line, overflow) {
				count++
			} else {
				skipped++
			}

			line = line[:0]
			overflow = false
		}

		if err != nil {
			h.log.Debug("Output stream ended", "stream", stream.String(), "lines", count, "skipped", skipped)

			if stderrors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
	}
}

// deliver emits one raw line, returning false when it was skipped.
func (s *Supervisor) deliver(h *handle, stream output.Stream, raw []byte, overflow bool) bool {
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))

	if overflow || len(raw) > maxLineSize {
		h.log.Debug("Skipping over-long output line", "stream", stream.String(), "limit", maxLineSize)

		return false
	}

	if !utf8.Valid(raw) {
		h.log.Debug("Skipping undecodable output line", "stream", stream.String(), "bytes", len(raw))

		return false
	}

	return s.emit(h, output.Line{
		Stream:   stream,
		Text:     string(raw),
		Instance: h.id,
		Time:     time.Now(),
	})
}

// emit hands a line to the sink, containing a sink panic to that line.
func (s *Supervisor) emit(h *handle, line output.Line) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Output sink panicked", "stream", line.Stream.String(), "panic", r)

			ok = false
		}
	}()

	s.sink.Emit(line)

	return true
}
