package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tableHeaderStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// NetListModel - Interactive net selection
// =============================================================================

// NetListModel is the bubbletea model for picking the net to stitch.
type NetListModel struct {
	Nets     []string
	Default  string
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewNetListModel creates a net list with the cursor on def when present.
func NewNetListModel(nets []string, def string) NetListModel {
	m := NetListModel{Nets: nets, Default: def, Height: 15}
	if i := slices.Index(nets, def); i >= 0 {
		m.Cursor = i
		if m.Cursor >= m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m
}

func (m NetListModel) Init() tea.Cmd {
	return nil
}

func (m NetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nets)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Nets) == 0 {
				return m, tea.Quit
			}
			m.Selected = m.Nets[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m NetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Net"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Nets))
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := cursor + m.Nets[i]
		if m.Nets[i] == m.Default {
			line += listDimStyle.Render("  (default)")
		}
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nets))))
	return b.String()
}

// pickNet runs the net picker. It returns "" when the user quits.
func pickNet(ctx context.Context, nets []string, def string, in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(NewNetListModel(nets, def),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", fmt.Errorf("net picker: %w", err)
	}
	return final.(NetListModel).Selected, nil
}

// =============================================================================
// ProgressModel - Live stitching progress
// =============================================================================

type progressMsg stitch.Update

type doneMsg struct {
	result *pipeline.Result
	err    error
}

// ProgressModel renders stitching progress from a stream of updates.
type ProgressModel struct {
	Title   string
	Width   int
	Current stitch.Update

	// Done is set once the run finished; Aborted when the user quit first.
	Done    bool
	Aborted bool
	Result  *pipeline.Result
	Err     error

	updates <-chan stitch.Update
	started time.Time
}

// newProgressModel creates a progress view fed by updates. The run
// delivers its result as a doneMsg.
func newProgressModel(title string, updates <-chan stitch.Update) ProgressModel {
	return ProgressModel{Title: title, Width: 40, updates: updates, started: time.Now()}
}

func waitUpdate(ch <-chan stitch.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(u)
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return waitUpdate(m.updates)
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			return m, tea.Quit
		}
	case progressMsg:
		m.Current = stitch.Update(msg)
		return m, waitUpdate(m.updates)
	case doneMsg:
		m.Done = true
		m.Result, m.Err = msg.result, msg.err
		if msg.err == nil && msg.result != nil {
			m.Current = msg.result.Done()
		}
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.Width = max(min(msg.Width-20, 60), 10)
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(progressBar(m.Current.Percent, m.Width))
	b.WriteString(" ")
	b.WriteString(StyleNumber.Render(fmt.Sprintf("%3.0f%%", m.Current.Percent)))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(m.Current.Status))
	b.WriteString("\n\n")
	if m.Done {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("finished in %s", time.Since(m.started).Round(time.Millisecond))))
	} else {
		b.WriteString(listDimStyle.Render("q cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// progressBar renders percent as a bar of the given width.
func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	return StyleSuccess.Render(strings.Repeat("█", filled)) +
		listDimStyle.Render(strings.Repeat("░", width-filled))
}

// runWithProgress runs fn while showing a progress view on out. Quitting
// the view cancels fn's context.
func runWithProgress(ctx context.Context, title string, in io.Reader, out io.Writer,
	fn func(context.Context, stitch.Sink) (*pipeline.Result, error)) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan stitch.Update, 64)
	done := make(chan doneMsg, 1)
	p := tea.NewProgram(newProgressModel(title, updates),
		tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	go func() {
		res, err := fn(ctx, stitch.ChanSink(updates))
		msg := doneMsg{result: res, err: err}
		done <- msg
		p.Send(msg)
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(ProgressModel)
	if ok && m.Done {
		return m.Result, m.Err
	}
	// Aborted or killed: stop the run and wait for it to unwind.
	cancel()
	d := <-done
	return d.result, d.err
}

// =============================================================================
// Tables
// =============================================================================

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim))
}

// zoneTable renders the zones that can be ignored during stitching.
func zoneTable(zones []stitch.ZoneInfo) string {
	rows := make([][]string, 0, len(zones))
	for _, z := range zones {
		layers := make([]string, len(z.Layers))
		for i, l := range z.Layers {
			layers[i] = string(l)
		}
		name := z.Name
		if name == "" {
			name = "—"
		}
		rows = append(rows, []string{z.ID, name, z.Net, strings.Join(layers, ", ")})
	}
	return newTable().
		Headers("ID", "Name", "Net", "Layers").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// runTable renders run history, newest first.
func runTable(runs []history.Record, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		created := fmt.Sprintf("%d/%d", r.Created, r.Candidates)
		if r.DryRun {
			created = fmt.Sprintf("%d (dry)", r.Candidates)
		}
		rows = append(rows, []string{shortID(r.ID), r.Net, r.Outcome, created, formatRelativeTime(r.StartedAt, now)})
	}
	return newTable().
		Headers("Run", "Net", "Outcome", "Vias", "Started").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			base := lipgloss.NewStyle().Foreground(colorWhite)
			if col == 2 && row < len(runs) {
				switch runs[row].Outcome {
				case string(stitch.OutcomeOK):
					return base.Foreground(colorGreen)
				case string(stitch.OutcomeCommitFailed):
					return base.Foreground(colorRed)
				default:
					return base.Foreground(colorYellow)
				}
			}
			if col == 4 {
				return base.Foreground(colorDim)
			}
			return base
		}).
		Render()
}

// =============================================================================
// Helpers
// =============================================================================

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
