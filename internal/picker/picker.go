// Package picker asks the user where the sidecar lives.
//
// On a terminal the user browses directories in a full-screen view; otherwise
// a path is read as one line of input. Either way the answer may be the
// sidecar binary itself or the folder that holds it.
package picker

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
	"github.com/wagiedev/spx-launcher-go/internal/locate"
)

// Compile-time verification that both pickers satisfy locate.Picker.
var (
	_ locate.Picker = (*Browser)(nil)
	_ locate.Picker = (*Prompt)(nil)
)

// New returns a Browser when in and out are both terminals and a Prompt
// otherwise.
func New(in, out *os.File) locate.Picker {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return NewBrowser(in, out, "")
	}

	return NewPrompt(in, out)
}

// Browser is an interactive directory browser.
type Browser struct {
	in    io.Reader
	out   io.Writer
	start string
}

// NewBrowser creates a Browser starting in start, or in the user's home
// directory when start is empty.
func NewBrowser(in io.Reader, out io.Writer, start string) *Browser {
	return &Browser{in: in, out: out, start: start}
}

// Pick runs the browser until the user chooses an entry or cancels.
func (p *Browser) Pick(ctx context.Context, title string) (string, error) {
	start := p.start
	if start == "" {
		start = startDir()
	}

	prog := tea.NewProgram(newBrowser(title, start),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithContext(ctx),
	)

	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		return "", fmt.Errorf("run picker: %w", err)
	}

	b, ok := final.(*browser)
	if !ok || b.cancelled || b.chosen == "" {
		return "", errors.ErrSelectionCancelled
	}

	return b.chosen, nil
}

// Prompt reads a path as a single line. An empty line or end of input
// cancels.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Pick prints title and reads one line. The read is not interrupted by ctx.
func (p *Prompt) Pick(_ context.Context, title string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s\nPath (empty to cancel): ", title); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		return "", fmt.Errorf("read path: %w", err)
	}

	path := strings.TrimSpace(line)
	if path == "" {
		return "", errors.ErrSelectionCancelled
	}

	return expandHome(path), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func startDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}

	return string(filepath.Separator)
}
