package report

import (
	"fmt"
	"io"
	"strings"

	"project-tracker/models"

	"github.com/go-pdf/fpdf"
)

type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

func (PDFRenderer) Render(w io.Writer, r *models.ProjectReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetTitle("Project report: "+r.Project.Name, true)
	pdf.SetAuthor("project-tracker", true)
	pdf.AliasNbPages("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Project Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(r.Project.Name), "", "L", false)
	pdf.Ln(2)

	section := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
		pdf.Ln(1)
	}
	keyValue := func(key, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, key, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}

	section("Project details")
	keyValue("Status", string(r.Project.Status))
	keyValue("Owner", personLabel(r.Owner))
	keyValue("Start date", formatDate(r.Project.StartDate))
	keyValue("End date", formatOptionalDate(r.Project.EndDate))
	keyValue("Created", formatDate(r.Project.CreatedAt))
	keyValue("Generated", r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if d := strings.TrimSpace(r.Project.Description); d != "" {
		keyValue("Description", d)
	}

	section(fmt.Sprintf("Members (%d)", len(r.Members)))
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 7, "Name", "B", 0, "L", false, 0, "")
	pdf.CellFormat(85, 7, "Email", "B", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, "Role", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, m := range r.Members {
		pdf.CellFormat(60, 6, tr(m.User.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(85, 6, tr(m.User.Email), "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, string(m.Role), "", 1, "L", false, 0, "")
	}

	section("Task statistics")
	for _, row := range statRows(r.Stats) {
		keyValue(row.label, row.value)
	}

	section(fmt.Sprintf("Tasks (%d)", len(r.Tasks)))
	if len(r.Tasks) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No tasks.", "", 1, "L", false, 0, "")
	}
	for i, rt := range r.Tasks {
		t := rt.Task
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", i+1, t.Title)), "", "L", false)

		due := formatDate(t.DueDate)
		if rt.Overdue {
			due += "  (OVERDUE)"
		}
		keyValue("Status", fmt.Sprintf("%s (%d%% complete)", t.Status, t.CompletionPercentage()))
		keyValue("Priority", string(t.Priority))
		keyValue("Due", due)
		keyValue("Assignee", personLabel(rt.Assignee))
		keyValue("Reporter", personLabel(rt.Reporter))
		keyValue("Hours", fmt.Sprintf("%s estimated, %s actual", formatHours(t.EstimatedHours), formatHours(t.ActualHours)))
		if len(t.Tags) > 0 {
			keyValue("Tags", strings.Join(t.Tags, ", "))
		}
		keyValue("Activity", fmt.Sprintf("%d comments, %d attachments", len(t.Comments), len(t.Attachments)))
		if d := strings.TrimSpace(t.Description); d != "" {
			keyValue("Description", d)
		}

		pdf.Ln(2)
		y := pdf.GetY()
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(15, y, 195, y)
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
