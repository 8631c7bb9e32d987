package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"project-tracker/logging"
	"project-tracker/models"
	"project-tracker/policy"
	"project-tracker/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskService struct {
	tasks    TaskRepository
	projects ProjectRepository
	store    storage.Store
	now      func() time.Time
}

func NewTaskService(tasks TaskRepository, projects ProjectRepository, store storage.Store) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, store: store, now: time.Now}
}

type CreateTaskInput struct {
	ProjectID      primitive.ObjectID
	Title          string
	Description    string
	Assignee       primitive.ObjectID
	Status         models.TaskStatus
	Priority       models.Priority
	DueDate        *time.Time
	Tags           []string
	EstimatedHours float64
	ActualHours    float64
}

// resolveTask loads a task and its owning project. A task whose project is
// gone is reported as not found.
func resolveTask(ctx context.Context, tasks TaskRepository, projects ProjectRepository, id primitive.ObjectID) (*models.Task, *models.Project, error) {
	t, err := tasks.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := projects.FindByID(ctx, t.Project)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// CreateTask inserts the task and then appends it to the project. If the
// append fails the task is removed again.
func (s *TaskService) CreateTask(ctx context.Context, actorID primitive.ObjectID, in CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = models.StatusToDo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}

	verr := &ValidationError{}
	if in.ProjectID.IsZero() {
		verr.Add("projectId")
	}
	if in.Title == "" {
		verr.Add("title")
	}
	if in.Assignee.IsZero() {
		verr.Add("assigneeId")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		verr.Add("dueDate")
	}
	if !in.Status.Valid() {
		verr.Add("status")
	}
	if !in.Priority.Valid() {
		verr.Add("priority")
	}
	if in.EstimatedHours < 0 {
		verr.Add("estimatedHours")
	}
	if in.ActualHours < 0 {
		verr.Add("actualHours")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	p, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}
	if !policy.IsMember(p, in.Assignee) {
		return nil, &ValidationError{Fields: []string{"assigneeId"}}
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:             primitive.NewObjectID(),
		Title:          in.Title,
		Description:    strings.TrimSpace(in.Description),
		Project:        p.ID,
		Assignee:       in.Assignee,
		Reporter:       actorID,
		Status:         in.Status,
		Priority:       in.Priority,
		DueDate:        in.DueDate.UTC(),
		Comments:       []models.Comment{},
		Attachments:    []models.Attachment{},
		Tags:           cleanTags(in.Tags),
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.projects.AddTask(ctx, p.ID, task.ID); err != nil {
		if derr := s.tasks.Delete(ctx, task.ID); derr != nil {
			logging.Logger.Errorf("Event ID: TASK_CREATE_ROLLBACK_FAILED, Description: Task %s left without project reference: %v", task.ID.Hex(), derr)
		}
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s by %s", task.ID.Hex(), p.ID.Hex(), actorID.Hex())
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, actorID, id primitive.ObjectID) (*models.Task, error) {
	t, p, err := resolveTask(ctx, s.tasks, s.projects, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}
	return t, nil
}

// ListProjectTasks returns the project's tasks, newest first.
func (s *TaskService) ListProjectTasks(ctx context.Context, actorID, projectID primitive.ObjectID) ([]models.Task, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

// ListUserTasks returns tasks assigned to actorID ordered by due date,
// limited to projects actorID still belongs to.
func (s *TaskService) ListUserTasks(ctx context.Context, actorID primitive.ObjectID) ([]models.Task, error) {
	projects, err := s.projects.ListForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(projects))
	for i := range projects {
		ids = append(ids, projects[i].ID)
	}
	return s.tasks.ListByAssignee(ctx, actorID, ids)
}

func (s *TaskService) ProjectStats(ctx context.Context, actorID, projectID primitive.ObjectID) (models.TaskStats, error) {
	tasks, err := s.ListProjectTasks(ctx, actorID, projectID)
	if err != nil {
		return models.TaskStats{}, err
	}
	return models.ComputeStats(tasks, s.now()), nil
}

// UpdateTask applies patch with last write wins semantics.
func (s *TaskService) UpdateTask(ctx context.Context, actorID, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	if patch.Empty() {
		return nil, &ValidationError{Fields: []string{"body"}}
	}

	verr := &ValidationError{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			verr.Add("title")
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		verr.Add("status")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		verr.Add("priority")
	}
	if patch.DueDate != nil && patch.DueDate.IsZero() {
		verr.Add("dueDate")
	}
	if patch.Assignee != nil && patch.Assignee.IsZero() {
		verr.Add("assignee")
	}
	if patch.EstimatedHours != nil && *patch.EstimatedHours < 0 {
		verr.Add("estimatedHours")
	}
	if patch.ActualHours != nil && *patch.ActualHours < 0 {
		verr.Add("actualHours")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if patch.Tags != nil {
		tags := cleanTags(*patch.Tags)
		patch.Tags = &tags
	}

	t, p, err := resolveTask(ctx, s.tasks, s.projects, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanEditTask(p, t, actorID)); err != nil {
		return nil, err
	}
	if patch.Assignee != nil && !policy.IsMember(p, *patch.Assignee) {
		return nil, &ValidationError{Fields: []string{"assignee"}}
	}

	patch.Apply(t)
	t.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddComment appends a comment; any project member may comment.
func (s *TaskService) AddComment(ctx context.Context, actorID, id primitive.ObjectID, content string) (*models.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Fields: []string{"content"}}
	}

	_, p, err := resolveTask(ctx, s.tasks, s.projects, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Content:   content,
		Author:    actorID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tasks.AddComment(ctx, id, comment); err != nil {
		return nil, err
	}
	return s.tasks.FindByID(ctx, id)
}

// DeleteTask pulls the task from its project, deletes the document and
// finally its attachment blobs.
func (s *TaskService) DeleteTask(ctx context.Context, actorID, id primitive.ObjectID) error {
	t, p, err := resolveTask(ctx, s.tasks, s.projects, id)
	if err != nil {
		return err
	}
	if err := decisionErr(policy.CanManage(p, actorID)); err != nil {
		return err
	}

	if err := s.projects.RemoveTask(ctx, p.ID, t.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return err
	}
	deleteBlobs(ctx, s.store, t.Attachments)

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted from project %s by %s", t.ID.Hex(), p.ID.Hex(), actorID.Hex())
	return nil
}
