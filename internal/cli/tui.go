package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/depsentry/depsentry/pkg/graphio"
	"github.com/depsentry/depsentry/pkg/observability"
	"github.com/depsentry/depsentry/pkg/scan"
)

// maxRecentCycles bounds the cycle list shown in the live view.
const maxRecentCycles = 5

// =============================================================================
// Messages
// =============================================================================

type nodeVisitedMsg struct {
	key   string
	depth int
}

type cycleFoundMsg struct{ path string }

type limitHitMsg struct {
	limit string
	value int
}

type scanDoneMsg struct {
	report *scan.Report
	err    error
}

// =============================================================================
// Traversal hooks bridge
// =============================================================================

// teaTraversalHooks forwards traversal events into a running bubbletea
// program. Send is safe for concurrent use, so the scan can run on its own
// goroutine while the UI loop consumes events.
type teaTraversalHooks struct {
	observability.NoopTraversalHooks
	program *tea.Program
}

func (h teaTraversalHooks) OnNodeVisited(key string, depth int) {
	h.program.Send(nodeVisitedMsg{key: key, depth: depth})
}

func (h teaTraversalHooks) OnCycleDetected(path string) {
	h.program.Send(cycleFoundMsg{path: path})
}

func (h teaTraversalHooks) OnLimitReached(limit string, value int) {
	h.program.Send(limitHitMsg{limit: limit, value: value})
}

// =============================================================================
// ScanProgressModel - Live traversal view
// =============================================================================

// ScanProgressModel is the bubbletea model for the live scan view.
type ScanProgressModel struct {
	Repository string

	visits   int
	maxDepth int
	current  string
	cycles   []string
	limits   []string

	report *scan.Report
	err    error
}

// NewScanProgressModel creates the live scan view for a repository.
func NewScanProgressModel(repository string) ScanProgressModel {
	return ScanProgressModel{Repository: repository}
}

func (m ScanProgressModel) Init() tea.Cmd {
	return nil
}

func (m ScanProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case nodeVisitedMsg:
		m.visits++
		m.current = msg.key
		if msg.depth > m.maxDepth {
			m.maxDepth = msg.depth
		}
	case cycleFoundMsg:
		if len(m.cycles) < maxRecentCycles {
			m.cycles = append(m.cycles, msg.path)
		}
	case limitHitMsg:
		m.limits = append(m.limits, fmt.Sprintf("%s limit (%d)", msg.limit, msg.value))
	case scanDoneMsg:
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ScanProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Scanning " + m.Repository))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q quit"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("visits"), StyleNumber.Render(fmt.Sprintf("%d", m.visits)))
	fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("depth"), StyleNumber.Render(fmt.Sprintf("%d", m.maxDepth)))
	if m.current != "" {
		fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("at"), StyleValue.Render(m.current))
	}

	if len(m.cycles) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(fmt.Sprintf("  %d cycle(s)", len(m.cycles))))
		b.WriteString("\n")
		for _, c := range m.cycles {
			b.WriteString(StyleDim.Render("    " + c))
			b.WriteString("\n")
		}
	}

	if len(m.limits) > 0 {
		b.WriteString("\n")
		for _, l := range m.limits {
			b.WriteString(StyleWarning.Render("  " + l))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// runInteractiveScan runs the scan on a background goroutine while the
// bubbletea view displays traversal events. Hooks are global, so only one
// interactive scan may run per process; the CLI satisfies that trivially.
func runInteractiveScan(scanner *scan.Scanner, repository string, g graphio.Graph) (*scan.Report, error) {
	p := tea.NewProgram(NewScanProgressModel(repository))

	observability.SetTraversalHooks(teaTraversalHooks{program: p})
	defer observability.Reset()

	go func() {
		report, err := scanner.Scan(repository, g)
		p.Send(scanDoneMsg{report: report, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := final.(ScanProgressModel)
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		// User quit before the scan finished; the traversal goroutine is
		// abandoned and its result discarded.
		return nil, fmt.Errorf("scan aborted")
	}
	return m.report, nil
}
