package picker

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	pathStyle   = lipgloss.NewStyle().Faint(true)
	dirStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// maxVisible bounds the number of entries rendered at once.
const maxVisible = 20

type entry struct {
	name string
	dir  bool
}

// browser is a bubbletea model for walking the filesystem and choosing a
// directory or a file.
type browser struct {
	title   string
	dir     string
	entries []entry
	cursor  int
	status  string

	chosen    string
	cancelled bool
}

func newBrowser(title, start string) *browser {
	b := &browser{title: title}

	if err := b.cd(start); err != nil {
		b.dir = filepath.Clean(start)
		b.status = err.Error()
	}

	return b
}

// cd lists dir and makes it current. On error the current directory is kept.
func (b *browser) cd(dir string) error {
	dir = filepath.Clean(dir)

	des, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	entries := make([]entry, 0, len(des)+1)
	for _, de := range des {
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(filepath.Join(dir, de.Name())); err == nil {
				isDir = fi.IsDir()
			}
		}

		entries = append(entries, entry{name: de.Name(), dir: isDir})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if a.dir != b.dir {
			if a.dir {
				return -1
			}

			return 1
		}

		return cmp.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})

	if parent := filepath.Dir(dir); parent != dir {
		entries = append([]entry{{name: "..", dir: true}}, entries...)
	}

	b.dir = dir
	b.entries = entries
	b.cursor = 0
	b.status = ""

	return nil
}

func (b *browser) Init() tea.Cmd {
	return nil
}

func (b *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}

	switch m.String() {
	case "ctrl+c", "esc", "q":
		b.cancelled = true

		return b, tea.Quit
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(b.entries)-1 {
			b.cursor++
		}
	case "enter", "right", "l":
		if len(b.entries) == 0 {
			return b, nil
		}

		e := b.entries[b.cursor]
		target := filepath.Join(b.dir, e.name)

		if !e.dir {
			b.chosen = target

			return b, tea.Quit
		}

		if err := b.cd(target); err != nil {
			b.status = err.Error()
		}
	case "backspace", "left", "h":
		if err := b.cd(filepath.Dir(b.dir)); err != nil {
			b.status = err.Error()
		}
	case ".":
		b.chosen = b.dir

		return b, tea.Quit
	}

	return b, nil
}

func (b *browser) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(b.title))
	sb.WriteString("\n")
	sb.WriteString(pathStyle.Render(b.dir))
	sb.WriteString("\n\n")

	start := 0
	if b.cursor >= maxVisible {
		start = b.cursor - maxVisible + 1
	}

	end := min(start+maxVisible, len(b.entries))

	for i := start; i < end; i++ {
		e := b.entries[i]

		name := e.name
		if e.dir {
			name = dirStyle.Render(name + string(filepath.Separator))
		}

		if i == b.cursor {
			sb.WriteString(cursorStyle.Render("> "))
		} else {
			sb.WriteString("  ")
		}

		sb.WriteString(name)
		sb.WriteString("\n")
	}

	if len(b.entries) == 0 {
		sb.WriteString(pathStyle.Render("  (empty)"))
		sb.WriteString("\n")
	}

	if b.status != "" {
		sb.WriteString("\n")
		sb.WriteString(errStyle.Render(b.status))
		sb.WriteString("\n")
	}

	sb.WriteString("\n[enter] Open/choose  [.] Choose this folder  [backspace] Up  [esc] Cancel\n")

	return sb.String()
}
