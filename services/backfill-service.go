package services

import (
	"context"
	"errors"
	"fmt"

	"project-tracker/logging"
	"project-tracker/models"
	"project-tracker/storage"
)

// BackfillResult summarises one migration run.
type BackfillResult struct {
	Tasks    int
	Migrated int
	Missing  int
	Failed   int
}

// BackfillService copies attachments from one backend into another and
// rewrites the embedded references, so a deployment can switch backends.
type BackfillService struct {
	tasks TaskRepository
	from  storage.Store
	to    storage.Store
}

func NewBackfillService(tasks TaskRepository, from, to storage.Store) *BackfillService {
	return &BackfillService{tasks: tasks, from: from, to: to}
}

// Run migrates every attachment still recorded on the source backend. It is
// safe to rerun: migrated attachments no longer match the source backend.
// With dryRun set nothing is written.
func (s *BackfillService) Run(ctx context.Context, dryRun, keepSource bool) (BackfillResult, error) {
	var res BackfillResult
	if s.from.Name() == s.to.Name() {
		return res, fmt.Errorf("source and target backend are both %q", s.from.Name())
	}

	tasks, err := s.tasks.ListWithAttachmentsOn(ctx, s.from.Name())
	if err != nil {
		return res, err
	}
	res.Tasks = len(tasks)

	for _, t := range tasks {
		for _, a := range t.Attachments {
			if a.Backend != s.from.Name() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if dryRun {
				res.Migrated++
				continue
			}

			switch err := s.migrate(ctx, t, a, keepSource); {
			case err == nil:
				res.Migrated++
			case errors.Is(err, storage.ErrNotFound):
				res.Missing++
				logging.Logger.Warnf("Event ID: BACKFILL_BLOB_MISSING, Description: Task %s attachment %s has no blob %s", t.ID.Hex(), a.ID.Hex(), a.StorageRef)
			default:
				res.Failed++
				logging.Logger.Errorf("Event ID: BACKFILL_FAILED, Description: Task %s attachment %s: %v", t.ID.Hex(), a.ID.Hex(), err)
			}
		}
	}
	return res, nil
}

func (s *BackfillService) migrate(ctx context.Context, t models.Task, a models.Attachment, keepSource bool) error {
	src, err := s.from.Open(ctx, a.StorageRef)
	if err != nil {
		return err
	}
	defer src.Close()

	stored, err := s.to.Save(ctx, storage.FileMeta{
		OriginalName: a.Filename,
		MimeType:     a.MimeType,
		UploadedBy:   a.UploadedBy.Hex(),
		TaskID:       t.ID.Hex(),
	}, src)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", s.to.Name(), err)
	}

	oldRef := a.StorageRef
	a.StorageRef = stored.Ref
	a.Backend = stored.Backend
	a.Size = stored.Size
	if err := s.tasks.ReplaceAttachment(ctx, t.ID, a); err != nil {
		if derr := s.to.Delete(ctx, stored.Ref); derr != nil {
			logging.Logger.Errorf("Event ID: BACKFILL_CLEANUP_FAILED, Description: Copied blob %s left behind: %v", stored.Ref, derr)
		}
		return fmt.Errorf("rewrite reference: %w", err)
	}

	if !keepSource {
		if err := s.from.Delete(ctx, oldRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logging.Logger.Warnf("Event ID: BACKFILL_SOURCE_DELETE_FAILED, Description: Source blob %s kept: %v", oldRef, err)
		}
	}
	return nil
}
