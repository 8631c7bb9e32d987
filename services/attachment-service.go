package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"project-tracker/logging"
	"project-tracker/models"
	"project-tracker/policy"
	"project-tracker/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttachmentService struct {
	tasks    TaskRepository
	projects ProjectRepository
	store    storage.Store
	maxBytes int64
	allowed  map[string]bool
	now      func() time.Time
}

func NewAttachmentService(tasks TaskRepository, projects ProjectRepository, store storage.Store, maxBytes int64, allowedTypes []string) *AttachmentService {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			allowed[t] = true
		}
	}
	return &AttachmentService{
		tasks:    tasks,
		projects: projects,
		store:    store,
		maxBytes: maxBytes,
		allowed:  allowed,
		now:      time.Now,
	}
}

type UploadInput struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// Download is an opened attachment; the caller closes Body.
type Download struct {
	Attachment models.Attachment
	Body       io.ReadCloser
}

// DetectMimeType prefers the declared part type and falls back to the file
// extension when the client sent none or a generic one.
func DetectMimeType(declared, filename string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return strings.ToLower(mt)
		}
	}
	return "application/octet-stream"
}

func storageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return ErrFileTooLarge
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrUnavailable):
		return ErrStorageUnavailable
	case errors.Is(err, storage.ErrClientRead):
		return fmt.Errorf("%w: %w", ErrBadArguments, err)
	}
	return err
}

// Upload validates type and membership before any byte is stored. Once the
// blob exists, every failure path deletes it again.
func (s *AttachmentService) Upload(ctx context.Context, actorID, taskID primitive.ObjectID, in UploadInput) (*models.Task, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(in.Filename), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, &ValidationError{Fields: []string{"file"}}
	}
	mimeType := DetectMimeType(in.MimeType, name)
	if !s.allowed[mimeType] {
		return nil, ErrFileTypeNotAllowed
	}

	_, p, err := resolveTask(ctx, s.tasks, s.projects, taskID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}

	stored, err := s.store.Save(ctx, storage.FileMeta{
		OriginalName: name,
		MimeType:     mimeType,
		UploadedBy:   actorID.Hex(),
		TaskID:       taskID.Hex(),
	}, storage.LimitReader(in.Body, s.maxBytes))
	if err != nil {
		logging.Logger.Warnf("Event ID: ATTACHMENT_UPLOAD_REJECTED, Description: Upload of %q to task %s failed: %v", name, taskID.Hex(), err)
		return nil, storageErr(err)
	}

	attachment := models.Attachment{
		ID:         primitive.NewObjectID(),
		Filename:   name,
		StorageRef: stored.Ref,
		Backend:    stored.Backend,
		MimeType:   mimeType,
		Size:       stored.Size,
		UploadedBy: actorID,
		UploadedAt: s.now().UTC(),
	}
	if err := s.tasks.AddAttachment(ctx, taskID, attachment); err != nil {
		s.discard(stored.Ref)
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: ATTACHMENT_UPLOADED, Description: Attachment %s (%d bytes) stored on %s for task %s", attachment.ID.Hex(), stored.Size, stored.Backend, taskID.Hex())
	return task, nil
}

// discard removes a blob whose record could not be written. It uses a fresh
// context so a cancelled request still cleans up.
func (s *AttachmentService) discard(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logging.Logger.Errorf("Event ID: ATTACHMENT_CLEANUP_FAILED, Description: Orphaned blob %s could not be removed: %v", ref, err)
	}
}

func (s *AttachmentService) open(ctx context.Context, a models.Attachment) (*Download, error) {
	if a.Backend != "" && a.Backend != s.store.Name() {
		logging.Logger.Warnf("Event ID: ATTACHMENT_BACKEND_MISMATCH, Description: Attachment %s lives on %s, active backend is %s", a.ID.Hex(), a.Backend, s.store.Name())
		return nil, ErrNotFound
	}
	body, err := s.store.Open(ctx, a.StorageRef)
	if err != nil {
		return nil, storageErr(err)
	}
	return &Download{Attachment: a, Body: body}, nil
}

func (s *AttachmentService) Open(ctx context.Context, actorID, taskID, attachmentID primitive.ObjectID) (*Download, error) {
	t, p, err := resolveTask(ctx, s.tasks, s.projects, taskID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}
	a, ok := t.FindAttachment(attachmentID)
	if !ok {
		return nil, ErrNotFound
	}
	return s.open(ctx, a)
}

// OpenByRef serves a blob by its stored reference, authorized through the
// task that holds it.
func (s *AttachmentService) OpenByRef(ctx context.Context, actorID primitive.ObjectID, ref string) (*Download, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	t, err := s.tasks.FindByAttachmentRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.FindByID(ctx, t.Project)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}
	for _, a := range t.Attachments {
		if a.StorageRef == ref {
			return s.open(ctx, a)
		}
	}
	return nil, ErrNotFound
}

// Delete removes the blob first and the embedded record second, so an
// interruption leaves an orphaned blob rather than a dangling record.
func (s *AttachmentService) Delete(ctx context.Context, actorID, taskID, attachmentID primitive.ObjectID) error {
	t, p, err := resolveTask(ctx, s.tasks, s.projects, taskID)
	if err != nil {
		return err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return err
	}
	a, ok := t.FindAttachment(attachmentID)
	if !ok {
		return ErrNotFound
	}
	if err := decisionErr(policy.CanDeleteAttachment(p, a, actorID)); err != nil {
		return err
	}

	if a.Backend == "" || a.Backend == s.store.Name() {
		if err := s.store.Delete(ctx, a.StorageRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return storageErr(err)
		}
	}
	if err := s.tasks.RemoveAttachment(ctx, taskID, attachmentID); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: ATTACHMENT_DELETED, Description: Attachment %s removed from task %s by %s", attachmentID.Hex(), taskID.Hex(), actorID.Hex())
	return nil
}
