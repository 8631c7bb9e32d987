package services

import (
	"context"
	"errors"
	"time"

	"project-tracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const unknownUser = "Unknown user"

// userDirectory resolves user ids to summaries; ids of deleted users resolve
// to a placeholder.
type userDirectory map[primitive.ObjectID]models.UserSummary

func loadUsers(ctx context.Context, users UserRepository, ids []primitive.ObjectID) (userDirectory, error) {
	ids = uniqueIDs(ids)
	dir := make(userDirectory, len(ids))
	if len(ids) == 0 {
		return dir, nil
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		dir[u.ID] = u.Summary()
	}
	return dir, nil
}

func (d userDirectory) lookup(id primitive.ObjectID) models.UserSummary {
	if u, ok := d[id]; ok {
		return u
	}
	return models.UserSummary{ID: id, Name: unknownUser}
}

// orderTasks returns the tasks referenced by p.Tasks in that order. Stale
// references are skipped.
func orderTasks(p *models.Project, all []models.Task) []models.Task {
	byID := make(map[primitive.ObjectID]models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	ordered := make([]models.Task, 0, len(p.Tasks))
	for _, id := range p.Tasks {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
			delete(byID, id)
		}
	}
	return ordered
}

// ViewService turns stored documents into API views with their references
// populated. Callers authorize access before asking for a view.
type ViewService struct {
	users    UserRepository
	projects ProjectRepository
	tasks    TaskRepository
	now      func() time.Time
}

func NewViewService(users UserRepository, projects ProjectRepository, tasks TaskRepository) *ViewService {
	return &ViewService{users: users, projects: projects, tasks: tasks, now: time.Now}
}

func (s *ViewService) Projects(ctx context.Context, projects []models.Project) ([]models.ProjectView, error) {
	var ids []primitive.ObjectID
	tasks := make([][]models.Task, len(projects))
	for i := range projects {
		p := &projects[i]
		ids = append(ids, p.Owner)
		for _, m := range p.Members {
			ids = append(ids, m.User)
		}
		all, err := s.tasks.ListByProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		tasks[i] = orderTasks(p, all)
	}

	dir, err := loadUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProjectView, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		v := models.ProjectView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Owner:       dir.lookup(p.Owner),
			Members:     make([]models.MemberView, 0, len(p.Members)),
			Tasks:       make([]models.TaskSummary, 0, len(tasks[i])),
			Status:      p.Status,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		for _, m := range p.Members {
			v.Members = append(v.Members, models.MemberView{User: dir.lookup(m.User), Role: m.Role})
		}
		for _, t := range tasks[i] {
			v.Tasks = append(v.Tasks, t.Summary())
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ViewService) Project(ctx context.Context, p *models.Project) (*models.ProjectView, error) {
	views, err := s.Projects(ctx, []models.Project{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ViewService) Tasks(ctx context.Context, tasks []models.Task) ([]models.TaskView, error) {
	refs := map[primitive.ObjectID]models.ProjectRef{}
	var ids []primitive.ObjectID
	for _, t := range tasks {
		if _, ok := refs[t.Project]; !ok {
			ref := models.ProjectRef{ID: t.Project}
			p, err := s.projects.FindByID(ctx, t.Project)
			switch {
			case err == nil:
				ref.Name = p.Name
			case !errors.Is(err, ErrNotFound):
				return nil, err
			}
			refs[t.Project] = ref
		}
		ids = append(ids, t.Assignee, t.Reporter)
		for _, c := range t.Comments {
			ids = append(ids, c.Author)
		}
	}

	dir, err := loadUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]models.TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		v := models.TaskView{
			ID:                   t.ID,
			Title:                t.Title,
			Description:          t.Description,
			Project:              refs[t.Project],
			Assignee:             dir.lookup(t.Assignee),
			Reporter:             dir.lookup(t.Reporter),
			Status:               t.Status,
			Priority:             t.Priority,
			DueDate:              t.DueDate,
			Comments:             make([]models.CommentView, 0, len(t.Comments)),
			Attachments:          t.Attachments,
			Tags:                 t.Tags,
			EstimatedHours:       t.EstimatedHours,
			ActualHours:          t.ActualHours,
			IsOverdue:            t.IsOverdue(now),
			CompletionPercentage: t.CompletionPercentage(),
			CreatedAt:            t.CreatedAt,
			UpdatedAt:            t.UpdatedAt,
		}
		if v.Attachments == nil {
			v.Attachments = []models.Attachment{}
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		for _, c := range t.Comments {
			v.Comments = append(v.Comments, models.CommentView{
				ID:        c.ID,
				Content:   c.Content,
				Author:    dir.lookup(c.Author),
				CreatedAt: c.CreatedAt,
			})
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ViewService) Task(ctx context.Context, t *models.Task) (*models.TaskView, error) {
	views, err := s.Tasks(ctx, []models.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
