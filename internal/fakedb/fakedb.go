// Package fakedb provides in-memory implementations of the service
// repository ports for tests.
package fakedb

import (
	"context"
	"sort"
	"sync"
	"time"

	"project-tracker/models"
	"project-tracker/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every document in memory. Reads return copies so callers cannot
// change stored state without going through a repository method.
type DB struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	projects map[primitive.ObjectID]models.Project
	tasks    map[primitive.ObjectID]models.Task

	// FailAddTask makes Projects.AddTask fail, to exercise rollbacks.
	FailAddTask bool
}

func New() *DB {
	return &DB{
		users:    map[primitive.ObjectID]models.User{},
		projects: map[primitive.ObjectID]models.Project{},
		tasks:    map[primitive.ObjectID]models.Task{},
	}
}

func copyProject(p models.Project) models.Project {
	p.Members = append([]models.Member(nil), p.Members...)
	p.Tasks = append([]primitive.ObjectID(nil), p.Tasks...)
	return p
}

func copyTask(t models.Task) models.Task {
	t.Comments = append([]models.Comment(nil), t.Comments...)
	t.Attachments = append([]models.Attachment(nil), t.Attachments...)
	t.Tags = append([]string(nil), t.Tags...)
	return t
}

type Users struct{ db *DB }
type Projects struct{ db *DB }
type Tasks struct{ db *DB }

var (
	_ services.UserRepository    = Users{}
	_ services.ProjectRepository = Projects{}
	_ services.TaskRepository    = Tasks{}
)

func (d *DB) Users() Users       { return Users{d} }
func (d *DB) Projects() Projects { return Projects{d} }
func (d *DB) Tasks() Tasks       { return Tasks{d} }

// SetUserRole changes a stored role directly, bypassing the admin check.
func (d *DB) SetUserRole(id primitive.ObjectID, role models.UserRole) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		u.Role = role
		d.users[id] = u
	}
}

// DropUser and DropProject remove documents without any cascade, leaving
// dangling references behind.
func (d *DB) DropUser(id primitive.ObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *DB) DropProject(id primitive.ObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.projects, id)
}

func (d *DB) AllTasks() []models.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, copyTask(t))
	}
	return out
}

func (r Users) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return services.ErrAlreadyExists
		}
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &u, nil
}

func (r Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, services.ErrNotFound
}

func (r Users) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r Users) List(_ context.Context) ([]models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		out = append(out, u)
	}
	return out, nil
}

func (r Users) Update(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[u.ID]; !ok {
		return services.ErrNotFound
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r Users) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return services.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r Projects) Create(_ context.Context, p *models.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.projects[p.ID] = copyProject(*p)
	return nil
}

func (r Projects) FindByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	p = copyProject(p)
	return &p, nil
}

func (r Projects) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Project
	for _, p := range r.db.projects {
		if _, ok := p.FindMember(userID); ok || p.Owner == userID {
			out = append(out, copyProject(p))
		}
	}
	return out, nil
}

func (r Projects) Update(_ context.Context, id primitive.ObjectID, patch models.ProjectPatch, now time.Time) (*models.Project, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.EndDate != nil {
		p.EndDate = patch.EndDate
	}
	p.UpdatedAt = now
	r.db.projects[id] = p
	p = copyProject(p)
	return &p, nil
}

func (r Projects) AddMember(_ context.Context, id primitive.ObjectID, m models.Member) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return services.ErrNotFound
	}
	p.Members = append(copyProject(p).Members, m)
	r.db.projects[id] = p
	return nil
}

func (r Projects) RemoveMember(_ context.Context, id, userID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return services.ErrNotFound
	}
	var kept []models.Member
	for _, m := range p.Members {
		if m.User != userID {
			kept = append(kept, m)
		}
	}
	p.Members = kept
	r.db.projects[id] = p
	return nil
}

func (r Projects) AddTask(_ context.Context, id, taskID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.FailAddTask {
		return context.DeadlineExceeded
	}
	p, ok := r.db.projects[id]
	if !ok {
		return services.ErrNotFound
	}
	for _, t := range p.Tasks {
		if t == taskID {
			return nil
		}
	}
	p.Tasks = append(copyProject(p).Tasks, taskID)
	r.db.projects[id] = p
	return nil
}

func (r Projects) RemoveTask(_ context.Context, id, taskID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.projects[id]
	if !ok {
		return services.ErrNotFound
	}
	var kept []primitive.ObjectID
	for _, t := range p.Tasks {
		if t != taskID {
			kept = append(kept, t)
		}
	}
	p.Tasks = kept
	r.db.projects[id] = p
	return nil
}

func (r Projects) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[id]; !ok {
		return services.ErrNotFound
	}
	delete(r.db.projects, id)
	return nil
}

func (r Tasks) Create(_ context.Context, t *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.tasks[t.ID] = copyTask(*t)
	return nil
}

func (r Tasks) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	t = copyTask(t)
	return &t, nil
}

func (r Tasks) FindByAttachmentRef(_ context.Context, ref string) (*models.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tasks {
		for _, a := range t.Attachments {
			if a.StorageRef == ref {
				t = copyTask(t)
				return &t, nil
			}
		}
	}
	return nil, services.ErrNotFound
}

func (r Tasks) filter(keep func(models.Task) bool) []models.Task {
	var out []models.Task
	for _, t := range r.db.tasks {
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	return out
}

func (r Tasks) ListByProject(_ context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.filter(func(t models.Task) bool { return t.Project == projectID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r Tasks) ListByAssignee(_ context.Context, userID primitive.ObjectID, projectIDs []primitive.ObjectID) ([]models.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	allowed := make(map[primitive.ObjectID]bool, len(projectIDs))
	for _, id := range projectIDs {
		allowed[id] = true
	}
	out := r.filter(func(t models.Task) bool { return t.Assignee == userID && allowed[t.Project] })
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r Tasks) ListWithAttachmentsOn(_ context.Context, backend string) ([]models.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(t models.Task) bool {
		for _, a := range t.Attachments {
			if a.Backend == backend {
				return true
			}
		}
		return false
	}), nil
}

func (r Tasks) Update(_ context.Context, t *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[t.ID]; !ok {
		return services.ErrNotFound
	}
	r.db.tasks[t.ID] = copyTask(*t)
	return nil
}

func (r Tasks) mutate(id primitive.ObjectID, fn func(*models.Task) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tasks[id]
	if !ok {
		return services.ErrNotFound
	}
	t = copyTask(t)
	if err := fn(&t); err != nil {
		return err
	}
	r.db.tasks[id] = t
	return nil
}

func (r Tasks) AddComment(_ context.Context, id primitive.ObjectID, c models.Comment) error {
	return r.mutate(id, func(t *models.Task) error {
		t.Comments = append(t.Comments, c)
		return nil
	})
}

func (r Tasks) AddAttachment(_ context.Context, id primitive.ObjectID, a models.Attachment) error {
	return r.mutate(id, func(t *models.Task) error {
		t.Attachments = append(t.Attachments, a)
		return nil
	})
}

func (r Tasks) ReplaceAttachment(_ context.Context, id primitive.ObjectID, a models.Attachment) error {
	return r.mutate(id, func(t *models.Task) error {
		for i := range t.Attachments {
			if t.Attachments[i].ID == a.ID {
				t.Attachments[i] = a
				return nil
			}
		}
		return services.ErrNotFound
	})
}

func (r Tasks) RemoveAttachment(_ context.Context, id, attachmentID primitive.ObjectID) error {
	return r.mutate(id, func(t *models.Task) error {
		var kept []models.Attachment
		for _, a := range t.Attachments {
			if a.ID != attachmentID {
				kept = append(kept, a)
			}
		}
		t.Attachments = kept
		return nil
	})
}

func (r Tasks) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[id]; !ok {
		return services.ErrNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

func (r Tasks) DeleteByProject(_ context.Context, projectID primitive.ObjectID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, t := range r.db.tasks {
		if t.Project == projectID {
			delete(r.db.tasks, id)
			n++
		}
	}
	return n, nil
}
