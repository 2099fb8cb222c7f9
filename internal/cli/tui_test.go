package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/depsentry/depsentry/pkg/scan"
)

func TestScanProgressModelCountsVisits(t *testing.T) {
	m := NewScanProgressModel("acme/webapp")

	var model tea.Model = m
	model, _ = model.Update(nodeVisitedMsg{key: "a@1.0.0", depth: 1})
	model, _ = model.Update(nodeVisitedMsg{key: "b@1.0.0", depth: 3})
	model, _ = model.Update(nodeVisitedMsg{key: "c@1.0.0", depth: 2})

	got := model.(ScanProgressModel)
	if got.visits != 3 {
		t.Errorf("visits = %d, want 3", got.visits)
	}
	if got.maxDepth != 3 {
		t.Errorf("maxDepth = %d, want 3", got.maxDepth)
	}
	if got.current != "c@1.0.0" {
		t.Errorf("current = %q, want c@1.0.0", got.current)
	}
}

func TestScanProgressModelBoundsCycleList(t *testing.T) {
	var model tea.Model = NewScanProgressModel("acme/webapp")

	for i := 0; i < maxRecentCycles+5; i++ {
		model, _ = model.Update(cycleFoundMsg{path: "a@1.0.0 → a@1.0.0"})
	}

	got := model.(ScanProgressModel)
	if len(got.cycles) != maxRecentCycles {
		t.Errorf("cycles kept = %d, want %d", len(got.cycles), maxRecentCycles)
	}
}

func TestScanProgressModelQuitsOnDone(t *testing.T) {
	var model tea.Model = NewScanProgressModel("acme/webapp")

	report := &scan.Report{ID: "abc"}
	model, cmd := model.Update(scanDoneMsg{report: report})

	if cmd == nil {
		t.Fatal("done message must quit the program")
	}
	got := model.(ScanProgressModel)
	if got.report != report {
		t.Error("report not captured on done")
	}
}

func TestScanProgressModelView(t *testing.T) {
	var model tea.Model = NewScanProgressModel("acme/webapp")
	model, _ = model.Update(nodeVisitedMsg{key: "lib@2.0.0", depth: 2})
	model, _ = model.Update(limitHitMsg{limit: "depth", value: 50})

	view := model.View()
	if !strings.Contains(view, "acme/webapp") {
		t.Error("view missing repository name")
	}
	if !strings.Contains(view, "lib@2.0.0") {
		t.Error("view missing current node")
	}
	if !strings.Contains(view, "depth limit (50)") {
		t.Error("view missing limit notice")
	}
}
