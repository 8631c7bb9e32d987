package services

import (
	"context"
	"time"

	"project-tracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repositories return ErrNotFound for missing documents and ErrAlreadyExists
// for unique index violations.

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.ProjectPatch, now time.Time) (*models.Project, error)
	AddMember(ctx context.Context, id primitive.ObjectID, m models.Member) error
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error
	AddTask(ctx context.Context, id, taskID primitive.ObjectID) error
	RemoveTask(ctx context.Context, id, taskID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindByAttachmentRef(ctx context.Context, ref string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error)
	// ListByAssignee only returns tasks whose project is in projectIDs.
	ListByAssignee(ctx context.Context, userID primitive.ObjectID, projectIDs []primitive.ObjectID) ([]models.Task, error)
	ListWithAttachmentsOn(ctx context.Context, backend string) ([]models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error
	AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) error
	ReplaceAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) error
	RemoveAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}
