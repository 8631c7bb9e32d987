// Package report renders a populated project graph into a downloadable
// document. Rendering is pure: the same report always yields the same bytes.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"project-tracker/models"
)

type Renderer interface {
	ContentType() string
	Extension() string
	Render(w io.Writer, r *models.ProjectReport) error
}

// ForFormat picks a renderer by query value; empty means PDF.
func ForFormat(format string) (Renderer, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "pdf":
		return PDFRenderer{}, true
	case "xlsx":
		return XLSXRenderer{}, true
	}
	return nil, false
}

func Filename(r *models.ProjectReport, ext string) string {
	return fmt.Sprintf("project-report-%s.%s", r.Project.ID.Hex(), ext)
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatDate(*t)
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1f h", h)
}

func personLabel(u models.UserSummary) string {
	if u.Email == "" {
		return u.Name
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

type statRow struct {
	label string
	value string
}

func statRows(s models.TaskStats) []statRow {
	return []statRow{
		{"Total tasks", fmt.Sprint(s.TotalTasks)},
		{"Completed", fmt.Sprint(s.CompletedTasks)},
		{"In progress", fmt.Sprint(s.InProgressTasks)},
		{"To do", fmt.Sprint(s.TodoTasks)},
		{"High priority", fmt.Sprint(s.HighPriorityTasks)},
		{"Medium priority", fmt.Sprint(s.MediumPriorityTasks)},
		{"Low priority", fmt.Sprint(s.LowPriorityTasks)},
		{"Overdue", fmt.Sprint(s.OverdueTasks)},
		{"Estimated hours", formatHours(s.TotalEstimatedHours)},
		{"Actual hours", formatHours(s.TotalActualHours)},
	}
}
