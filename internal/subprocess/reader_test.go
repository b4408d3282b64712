package subprocess

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/spx-launcher-go/internal/output"
)

func testHandle() *handle {
	return &handle{
		id:  "01TESTINSTANCE",
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReadLines(t *testing.T) {
	long := strings.Repeat("x", maxLineSize+1)
	atLimit := strings.Repeat("y", maxLineSize)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "plain lines", input: "a\nb\nc\n", want: []string{"a", "b", "c"}},
		{name: "blank line kept", input: "a\n\nb\n", want: []string{"a", "", "b"}},
		{name: "crlf trimmed", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "final line without newline", input: "a\nb", want: []string{"a", "b"}},
		{name: "invalid utf8 skipped", input: "a\n\xff\xfe\nb\n", want: []string{"a", "b"}},
		{name: "over-long line skipped", input: "a\n" + long + "\nb\n", want: []string{"a", "b"}},
		{name: "over-long final line skipped", input: "a\n" + long, want: []string{"a"}},
		{name: "line at limit kept", input: atLimit + "\n", want: []string{atLimit}},
		{name: "crlf line at limit kept", input: atLimit + "\r\n" + "b\n", want: []string{atLimit, "b"}},
		{name: "final line at limit kept", input: "a\n" + atLimit, want: []string{"a", atLimit}},
		{name: "crlf line over limit skipped", input: long + "\r\nb\n", want: []string{"b"}},
		{name: "utf8 text", input: "héllo wörld\n", want: []string{"héllo wörld"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recorder{}
			s := NewSupervisor(&Config{Sink: sink})
			h := testHandle()

			err := s.readLines(h, output.Stderr, strings.NewReader(tt.input))
			require.NoError(t, err)

			got := sink.texts(output.Stderr)
			require.Equal(t, tt.want, got)

			for _, line := range sink.all() {
				require.Equal(t, h.id, line.Instance)
			}
		})
	}
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}

	n := copy(p, r.data)
	r.data = r.data[n:]

	return n, nil
}

func TestReadLines_ReadError(t *testing.T) {
	errRead := errors.New("pipe broke")
	sink := &recorder{}
	s := NewSupervisor(&Config{Sink: sink})

	err := s.readLines(testHandle(), output.Stdout, &failingReader{data: "a\npartial", err: errRead})
	require.ErrorIs(t, err, errRead)
	require.Equal(t, []string{"a", "partial"}, sink.texts(output.Stdout))
}

func TestReadLines_SinkPanicIsContained(t *testing.T) {
	var got []string

	sink := output.Func(func(line output.Line) {
		if line.Text == "boom" {
			panic("sink exploded")
		}

		got = append(got, line.Text)
	})

	s := NewSupervisor(&Config{Sink: sink})

	err := s.readLines(testHandle(), output.Stdout, strings.NewReader("a\nboom\nb\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)
}
