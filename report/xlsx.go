package report

import (
	"fmt"
	"io"
	"strings"

	"project-tracker/models"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	tasksSheet   = "Tasks"
)

type XLSXRenderer struct{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Extension() string { return "xlsx" }

func (XLSXRenderer) Render(w io.Writer, r *models.ProjectReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSummary(f, r, bold); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeTasks(f, r, bold); err != nil {
		return fmt.Errorf("tasks sheet: %w", err)
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSummary(f *excelize.File, r *models.ProjectReport, bold int) error {
	rows := [][]interface{}{
		{"Project Report"},
		{"Name", r.Project.Name},
		{"Status", string(r.Project.Status)},
		{"Owner", personLabel(r.Owner)},
		{"Start date", formatDate(r.Project.StartDate)},
		{"End date", formatOptionalDate(r.Project.EndDate)},
		{"Generated", r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")},
		{"Description", r.Project.Description},
		{},
		{"Statistics"},
	}
	for _, s := range statRows(r.Stats) {
		rows = append(rows, []interface{}{s.label, s.value})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Members"}, []interface{}{"Name", "Email", "Role"})
	for _, m := range r.Members {
		rows = append(rows, []interface{}{m.User.Name, m.User.Email, string(m.Role)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if len(row) == 1 {
			if err := f.SetCellStyle(summarySheet, cell, cell, bold); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "C", 40)
}

func writeTasks(f *excelize.File, r *models.ProjectReport, bold int) error {
	if _, err := f.NewSheet(tasksSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(tasksSheet)
	if err != nil {
		return err
	}

	header := []interface{}{"#", "Title", "Status", "Priority", "Due date", "Overdue", "Assignee", "Reporter",
		"Estimated hours", "Actual hours", "Completion %", "Tags", "Comments", "Attachments"}
	widths := []float64{5, 35, 14, 10, 12, 9, 30, 30, 10, 10, 10, 25, 10, 12}
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return err
	}

	for i, rt := range r.Tasks {
		t := rt.Task
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			i + 1, t.Title, string(t.Status), string(t.Priority), formatDate(t.DueDate), rt.Overdue,
			rt.Assignee.Name, rt.Reporter.Name, t.EstimatedHours, t.ActualHours, t.CompletionPercentage(),
			strings.Join(t.Tags, ", "), len(t.Comments), len(t.Attachments),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}
