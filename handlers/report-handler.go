package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"project-tracker/report"
	"project-tracker/services"
)

type ReportHandler struct {
	Service *services.ReportService
	errs    errorWriter
}

func NewReportHandler(service *services.ReportService, dev bool) *ReportHandler {
	return &ReportHandler{Service: service, errs: errorWriter{dev: dev}}
}

// Generate renders the project report as PDF, or as XLSX with ?format=xlsx.
// The document is rendered fully before any header is written so a failed
// render still produces a JSON error.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	renderer, ok := report.ForFormat(r.URL.Query().Get("format"))
	if !ok {
		h.errs.write(w, r, &services.ValidationError{Fields: []string{"format"}})
		return
	}

	rep, err := h.Service.BuildReport(r.Context(), caller(r), projectID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, rep); err != nil {
		h.errs.write(w, r, err)
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition", attachmentDisposition(report.Filename(rep, renderer.Extension())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
