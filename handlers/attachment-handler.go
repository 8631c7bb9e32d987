package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"project-tracker/logging"
	"project-tracker/services"

	"github.com/gorilla/mux"
)

// multipartSlack covers part headers and boundaries around the file body.
const multipartSlack = 1 << 20

type AttachmentHandler struct {
	Service  *services.AttachmentService
	Views    *services.ViewService
	MaxBytes int64
	errs     errorWriter
}

func NewAttachmentHandler(service *services.AttachmentService, views *services.ViewService, maxBytes int64, dev bool) *AttachmentHandler {
	return &AttachmentHandler{Service: service, Views: views, MaxBytes: maxBytes, errs: errorWriter{dev: dev}}
}

// Upload streams the "file" part of a multipart body into the attachment
// store without buffering it in memory.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if r.ContentLength > h.MaxBytes+multipartSlack {
		h.errs.write(w, r, services.ErrFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		h.errs.write(w, r, &services.ValidationError{Fields: []string{"file"}})
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			h.errs.write(w, r, &services.ValidationError{Fields: []string{"file"}})
			return
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.errs.write(w, r, services.ErrFileTooLarge)
				return
			}
			h.errs.write(w, r, &services.ValidationError{Fields: []string{"file"}})
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		task, err := h.Service.Upload(r.Context(), caller(r), taskID, services.UploadInput{
			Filename: part.FileName(),
			MimeType: part.Header.Get("Content-Type"),
			Body:     part,
		})
		part.Close()
		if err != nil {
			h.errs.write(w, r, err)
			return
		}
		writeTask(w, r, h.Views, h.errs, http.StatusCreated, task)
		return
	}
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	attachmentID, err := pathID(r, "attachmentId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	dl, err := h.Service.Open(r.Context(), caller(r), taskID, attachmentID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	serveDownload(w, dl)
}

// DownloadByRef serves /api/uploads/{ref}.
func (h *AttachmentHandler) DownloadByRef(w http.ResponseWriter, r *http.Request) {
	dl, err := h.Service.OpenByRef(r.Context(), caller(r), mux.Vars(r)["ref"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	serveDownload(w, dl)
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	attachmentID, err := pathID(r, "attachmentId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.Service.Delete(r.Context(), caller(r), taskID, attachmentID); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Attachment deleted successfully")
}

func serveDownload(w http.ResponseWriter, dl *services.Download) {
	defer dl.Body.Close()

	contentType := dl.Attachment.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachmentDisposition(dl.Attachment.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if dl.Attachment.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Attachment.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil {
		logging.Logger.Warnf("Event ID: ATTACHMENT_STREAM_FAILED, Description: Streaming %s failed: %v", dl.Attachment.ID.Hex(), err)
	}
}

func attachmentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
