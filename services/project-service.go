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

type ProjectService struct {
	projects ProjectRepository
	tasks    TaskRepository
	users    UserRepository
	store    storage.Store
	now      func() time.Time
}

func NewProjectService(projects ProjectRepository, tasks TaskRepository, users UserRepository, store storage.Store) *ProjectService {
	return &ProjectService{projects: projects, tasks: tasks, users: users, store: store, now: time.Now}
}

type MemberInput struct {
	UserID primitive.ObjectID
	Role   models.MemberRole
}

type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Members     []MemberInput
}

// loadProject resolves a project and applies check to it. A missing project
// is reported as ErrNotFound before any membership test.
func (s *ProjectService) loadProject(ctx context.Context, id, actorID primitive.ObjectID, check func(*models.Project, primitive.ObjectID) policy.Decision) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(check(p, actorID)); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProject makes actorID the owner and records them as a Manager member.
func (s *ProjectService) CreateProject(ctx context.Context, actorID primitive.ObjectID, in CreateProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = models.ProjectActive
	}

	verr := &ValidationError{}
	if in.Name == "" {
		verr.Add("name")
	}
	if !in.Status.Valid() {
		verr.Add("status")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		verr.Add("endDate")
	}

	members := []models.Member{{User: actorID, Role: models.MemberRoleManager}}
	seen := map[primitive.ObjectID]bool{actorID: true}
	var extra []primitive.ObjectID
	for _, m := range in.Members {
		if m.Role == "" {
			m.Role = models.MemberRoleMember
		}
		if m.UserID.IsZero() || !m.Role.Valid() {
			verr.Add("members")
			break
		}
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		members = append(members, models.Member{User: m.UserID, Role: m.Role})
		extra = append(extra, m.UserID)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if len(extra) > 0 {
		found, err := s.users.FindByIDs(ctx, extra)
		if err != nil {
			return nil, err
		}
		if len(found) != len(extra) {
			return nil, &ValidationError{Fields: []string{"members"}}
		}
	}

	now := s.now().UTC()
	start := now
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	project := &models.Project{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Owner:       actorID,
		Members:     members,
		Tasks:       []primitive.ObjectID{},
		Status:      in.Status,
		StartDate:   start,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: Project %s created by %s with %d members", project.ID.Hex(), actorID.Hex(), len(members))
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, actorID, id primitive.ObjectID) (*models.Project, error) {
	return s.loadProject(ctx, id, actorID, policy.CanRead)
}

// ListProjects returns the projects actorID owns or is a member of.
func (s *ProjectService) ListProjects(ctx context.Context, actorID primitive.ObjectID) ([]models.Project, error) {
	return s.projects.ListForUser(ctx, actorID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, actorID, id primitive.ObjectID, patch models.ProjectPatch) (*models.Project, error) {
	if patch.Empty() {
		return nil, &ValidationError{Fields: []string{"body"}}
	}

	verr := &ValidationError{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			verr.Add("name")
		}
		patch.Name = &name
	}
	if patch.Status != nil && !patch.Status.Valid() {
		verr.Add("status")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	p, err := s.loadProject(ctx, id, actorID, policy.CanManage)
	if err != nil {
		return nil, err
	}
	if patch.EndDate != nil && patch.EndDate.Before(p.StartDate) {
		return nil, &ValidationError{Fields: []string{"endDate"}}
	}

	return s.projects.Update(ctx, id, patch, s.now().UTC())
}

func (s *ProjectService) AddMember(ctx context.Context, actorID, id primitive.ObjectID, in MemberInput) (*models.Project, error) {
	if in.Role == "" {
		in.Role = models.MemberRoleMember
	}
	if in.UserID.IsZero() || !in.Role.Valid() {
		verr := &ValidationError{}
		if in.UserID.IsZero() {
			verr.Add("userId")
		}
		if !in.Role.Valid() {
			verr.Add("role")
		}
		return nil, verr
	}

	p, err := s.loadProject(ctx, id, actorID, policy.CanManage)
	if err != nil {
		return nil, err
	}
	if policy.IsMember(p, in.UserID) {
		return nil, ErrAlreadyExists
	}
	if _, err := s.users.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	if err := s.projects.AddMember(ctx, id, models.Member{User: in.UserID, Role: in.Role}); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: PROJECT_MEMBER_ADDED, Description: User %s added to project %s as %s", in.UserID.Hex(), id.Hex(), in.Role)
	return s.projects.FindByID(ctx, id)
}

// RemoveMember never removes the owner.
func (s *ProjectService) RemoveMember(ctx context.Context, actorID, id, userID primitive.ObjectID) (*models.Project, error) {
	p, err := s.loadProject(ctx, id, actorID, policy.CanManage)
	if err != nil {
		return nil, err
	}
	if policy.IsOwner(p, userID) {
		return nil, ErrOwnerRemoval
	}
	if _, ok := p.FindMember(userID); !ok {
		return nil, ErrNotFound
	}

	if err := s.projects.RemoveMember(ctx, id, userID); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: PROJECT_MEMBER_REMOVED, Description: User %s removed from project %s by %s", userID.Hex(), id.Hex(), actorID.Hex())
	return s.projects.FindByID(ctx, id)
}

// DeleteProject removes attachment blobs, then every task of the project,
// then the project itself. A failure part way leaves the project in place so
// the owner can retry.
func (s *ProjectService) DeleteProject(ctx context.Context, actorID, id primitive.ObjectID) error {
	if _, err := s.loadProject(ctx, id, actorID, policy.CanDeleteProject); err != nil {
		return err
	}

	tasks, err := s.tasks.ListByProject(ctx, id)
	if err != nil {
		return err
	}
	for i := range tasks {
		deleteBlobs(ctx, s.store, tasks[i].Attachments)
	}

	n, err := s.tasks.DeleteByProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: PROJECT_DELETED, Description: Project %s deleted by %s along with %d tasks", id.Hex(), actorID.Hex(), n)
	return nil
}

func (s *ProjectService) Stats(ctx context.Context, actorID, id primitive.ObjectID) (models.TaskStats, error) {
	if _, err := s.loadProject(ctx, id, actorID, policy.CanRead); err != nil {
		return models.TaskStats{}, err
	}
	tasks, err := s.tasks.ListByProject(ctx, id)
	if err != nil {
		return models.TaskStats{}, err
	}
	return models.ComputeStats(tasks, s.now()), nil
}

// deleteBlobs removes stored bytes of attachments whose records are about to
// disappear. Failures only leave orphaned blobs, so they are logged.
func deleteBlobs(ctx context.Context, store storage.Store, attachments []models.Attachment) {
	for _, a := range attachments {
		if a.Backend != "" && a.Backend != store.Name() {
			logging.Logger.Warnf("Event ID: ATTACHMENT_BACKEND_MISMATCH, Description: Attachment %s lives on %s, active backend is %s", a.ID.Hex(), a.Backend, store.Name())
			continue
		}
		if err := store.Delete(ctx, a.StorageRef); err != nil && !errors.Is(err, storage.ErrNotFound) {
			logging.Logger.Errorf("Event ID: ATTACHMENT_BLOB_DELETE_FAILED, Description: Failed to delete blob %s: %v", a.StorageRef, err)
		}
	}
}
