package shell

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	listeningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
	transcriptStyle = lipgloss.NewStyle().Italic(true)
	infoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	boxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Console renders the state as a box on a terminal. Identical consecutive
// states are printed once.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	last  State
	shown bool
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Render(st State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shown && st == c.last {
		return
	}
	c.last, c.shown = st, true

	fmt.Fprintln(c.w, boxStyle.Render(Format(st)))
}

// Format lays out the state without the surrounding box.
func Format(st State) string {
	lines := []string{titleStyle.Render("Voice Assistant (Friday)")}

	if !st.Supported {
		lines = append(lines, warnStyle.Render(RecognitionUnsupported))
	}

	if st.Listening {
		lines = append(lines, listeningStyle.Render("Listening..."))
	} else {
		lines = append(lines, idleStyle.Render("Start Listening"))
	}

	if st.Transcript != "" {
		lines = append(lines, transcriptStyle.Render(st.Transcript))
	}
	if st.Info != "" {
		lines = append(lines, infoStyle.Render(st.Info))
	}

	return strings.Join(lines, "\n")
}
