package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/vb/internal/model"
	"github.com/nikbrunner/vb/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Picker lets the user choose one video out of several search results.
type Picker struct {
	results   []search.SearchResult
	query     string
	keys      KeyMap
	copyURL   func(string) error
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a new Picker with the given search results.
func New(results []search.SearchResult, query string) Picker {
	return Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		copyURL: clipboard.WriteAll,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) > 0 {
				p.selected = true
			}
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			if len(p.results) > 0 {
				p.cursor = len(p.results) - 1
			}

		case key.Matches(msg, p.keys.Copy):
			if v := p.current(); v != nil {
				if err := p.copyURL(v.URL); err != nil {
					p.status = "Copy failed: " + err.Error()
				} else {
					p.status = "Copied " + v.URL
				}
			}
		}
	}

	return p, nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		v := result.Video
		meta := fmt.Sprintf("[%s · %s]", v.Category, v.Status)
		if result.Tag != "" {
			meta += " #" + result.Tag
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, style.Render(v.Title), metaStyle.Render(meta))
		fmt.Fprintf(&b, "   %s\n", urlStyle.Render(v.URL))
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(hintStyle.Render(p.status))
		b.WriteString("\n")
	}

	hints := make([]string, 0, len(p.keys.hints()))
	for _, binding := range p.keys.hints() {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	b.WriteString(hintStyle.Render(strings.Join(hints, "  ")))

	return b.String()
}

func (p Picker) current() *model.Video {
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Video
	}
	return nil
}

// SelectedVideo returns the chosen video, or nil if the picker was cancelled.
func (p Picker) SelectedVideo() *model.Video {
	if p.cancelled || !p.selected {
		return nil
	}
	return p.current()
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
