package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

func TestDashboardRendersStats(t *testing.T) {
	dashboard, err := NewDashboard()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = dashboard.Render(&buf, PageData{
		AppName:    "TruthGuard <AI>",
		TextScorer: "heuristic",
		Stats:      models.Stats{TotalDetections: 4, AIDetected: 3, HumanDetected: 1, AccuracyRate: "92%"},
	})
	require.NoError(t, err)

	page := buf.String()
	require.Contains(t, page, "TruthGuard &lt;AI&gt;")
	require.Contains(t, page, `<strong id="stat-total">4</strong>`)
	require.Contains(t, page, "AI (75%)")
	require.Contains(t, page, "92%")
}

func TestDashboardZeroStats(t *testing.T) {
	dashboard, err := NewDashboard()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dashboard.Render(&buf, PageData{AppName: "TruthGuard AI"}))
	require.Contains(t, buf.String(), "AI (0%)")
}

func TestDashboardGuardsEmptyTextAndOffersDemoSample(t *testing.T) {
	dashboard, err := NewDashboard()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dashboard.Render(&buf, PageData{AppName: "TruthGuard AI"}))
	page := buf.String()

	require.Contains(t, page, `id="demo-text"`)
	require.Contains(t, page, `data-sample="`+DemoAIText+`"`)
	require.Contains(t, page, "textInput.value.trim()")
	require.Contains(t, page, "Please enter some text to analyze")
	require.Contains(t, page, `<span id="char-count">0</span> chars, <span id="word-count">0</span> words`)
}
