package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/heimgewebe/mitschreiber/internal/models"
	"github.com/heimgewebe/mitschreiber/pkg/utils"
)

// Source provides the per-app sample counts a report is built from
type Source interface {
	GetAppSummary(sessionID string) ([]models.AppSummary, error)
}

// Reporter handles report generation
type Reporter struct {
	repo Source
}

// New creates a new reporter
func New(repo Source) *Reporter {
	return &Reporter{repo: repo}
}

// GenerateReport summarizes one session. Each sample stands for one poll
// interval of foreground time, so durations are approximate.
func (r *Reporter) GenerateReport(sessionID string, pollInterval time.Duration) (*models.Report, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	summaries, err := r.repo.GetAppSummary(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get app summary")
	}

	var totalSamples int64
	for i := range summaries {
		summaries[i].ApproxSeconds = float64(summaries[i].SampleCount) * pollInterval.Seconds()
		totalSamples += summaries[i].SampleCount
	}

	if totalSamples > 0 {
		for i := range summaries {
			summaries[i].Percentage = float64(summaries[i].SampleCount) / float64(totalSamples) * 100.0
		}
	}

	if summaries == nil {
		summaries = []models.AppSummary{}
	}

	return &models.Report{
		Session:      sessionID,
		PollInterval: pollInterval,
		Apps:         summaries,
		TotalSamples: totalSamples,
		TotalSeconds: float64(totalSamples) * pollInterval.Seconds(),
		GeneratedAt:  time.Now(),
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session Report - %s\n", report.Session)
	fmt.Fprintf(&b, "Poll interval: %s\n", report.PollInterval)
	fmt.Fprintf(&b, "Samples: %d (~%s)\n\n", report.TotalSamples, utils.FormatRoundedUnit(utils.Seconds(report.TotalSeconds)))

	if len(report.Apps) == 0 {
		b.WriteString("No samples recorded for this session.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %10s %10s\n", "Application", "Samples", "Time", "Percent")
	b.WriteString(strings.Repeat("-", 64) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-30s %10d %10s %9.1f%%\n",
			truncate(app.AppName, 30),
			app.SampleCount,
			utils.FormatRoundedUnit(utils.Seconds(app.ApproxSeconds)),
			app.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
