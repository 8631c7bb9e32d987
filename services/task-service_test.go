package services_test

import (
	"context"
	"testing"
	"time"

	"project-tracker/models"
	"project-tracker/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type taskFixture struct {
	*testEnv
	owner, member, outsider primitive.ObjectID
	project                 *models.Project
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	e := newTestEnv(t)
	f := &taskFixture{testEnv: e}
	f.owner = e.addUser(t, "u1")
	f.member = e.addUser(t, "u2")
	f.outsider = e.addUser(t, "u3")

	p, err := e.projects.CreateProject(context.Background(), f.owner, services.CreateProjectInput{
		Name:    "Alpha",
		Members: []services.MemberInput{{UserID: f.member, Role: models.MemberRoleMember}},
	})
	require.NoError(t, err)
	f.project = p
	return f
}

func (f *taskFixture) createTask(t *testing.T, actor, assignee primitive.ObjectID, title string, due time.Time) *models.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), actor, services.CreateTaskInput{
		ProjectID: f.project.ID,
		Title:     title,
		Assignee:  assignee,
		DueDate:   &due,
	})
	require.NoError(t, err)
	return task
}

func TestOverdueStatsScenario(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	task := f.createTask(t, f.member, f.member, "T1", time.Now().Add(-24*time.Hour))
	assert.Equal(t, models.StatusToDo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, f.member, task.Reporter)

	stats, err := f.tasks.ProjectStats(ctx, f.member, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 1, stats.OverdueTasks)

	_, err = f.tasks.UpdateTask(ctx, f.member, task.ID, models.TaskPatch{Status: ptr(models.StatusCompleted)})
	require.NoError(t, err)

	stats, err = f.tasks.ProjectStats(ctx, f.member, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 0, stats.OverdueTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, f.member, services.CreateTaskInput{ProjectID: f.project.ID, Priority: "Urgent"})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"title", "assigneeId", "dueDate", "priority"}, verr.Fields)

	due := time.Now()
	_, err = f.tasks.CreateTask(ctx, f.member, services.CreateTaskInput{ProjectID: f.project.ID, Title: "T", Assignee: f.outsider, DueDate: &due})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"assigneeId"}, verr.Fields)

	_, err = f.tasks.CreateTask(ctx, f.outsider, services.CreateTaskInput{ProjectID: f.project.ID, Title: "T", Assignee: f.outsider, DueDate: &due})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.tasks.CreateTask(ctx, f.member, services.CreateTaskInput{ProjectID: primitive.NewObjectID(), Title: "T", Assignee: f.member, DueDate: &due})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCreateTaskRollsBackWhenProjectAppendFails(t *testing.T) {
	f := newTaskFixture(t)
	f.db.FailAddTask = true

	due := time.Now()
	_, err := f.tasks.CreateTask(context.Background(), f.member, services.CreateTaskInput{
		ProjectID: f.project.ID, Title: "T", Assignee: f.member, DueDate: &due,
	})
	require.Error(t, err)
	assert.Empty(t, f.db.AllTasks())
}

func TestTaskReadRequiresMembership(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	_, err := f.tasks.GetTask(ctx, f.outsider, task.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.tasks.ListProjectTasks(ctx, f.outsider, f.project.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.tasks.GetTask(ctx, f.member, primitive.NewObjectID())
	assert.ErrorIs(t, err, services.ErrNotFound)

	// a task whose project vanished is not found rather than forbidden
	f.db.DropProject(f.project.ID)
	_, err = f.tasks.GetTask(ctx, f.outsider, task.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTaskEditRights(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	bystander := f.addUser(t, "u4")
	_, err := f.projects.AddMember(ctx, f.owner, f.project.ID, services.MemberInput{UserID: bystander})
	require.NoError(t, err)

	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	_, err = f.tasks.UpdateTask(ctx, bystander, task.ID, models.TaskPatch{Title: ptr("mine")})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.tasks.UpdateTask(ctx, f.outsider, task.ID, models.TaskPatch{Title: ptr("mine")})
	assert.ErrorIs(t, err, services.ErrForbidden)

	updated, err := f.tasks.UpdateTask(ctx, f.member, task.ID, models.TaskPatch{
		Priority: ptr(models.PriorityHigh),
		Tags:     &[]string{"ui", " ui ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, []string{"ui"}, updated.Tags)

	_, err = f.tasks.UpdateTask(ctx, f.owner, task.ID, models.TaskPatch{Assignee: ptr(f.outsider)})
	assert.ErrorIs(t, err, services.ErrBadArguments)

	updated, err = f.tasks.UpdateTask(ctx, f.owner, task.ID, models.TaskPatch{Assignee: ptr(bystander)})
	require.NoError(t, err)
	assert.Equal(t, bystander, updated.Assignee)
	assert.Equal(t, task.Project, updated.Project)
}

func TestCommentsAreAppendOnlyForMembers(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.owner, "T1", time.Now())

	_, err := f.tasks.AddComment(ctx, f.outsider, task.ID, "hello")
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.tasks.AddComment(ctx, f.member, task.ID, "   ")
	assert.ErrorIs(t, err, services.ErrBadArguments)

	updated, err := f.tasks.AddComment(ctx, f.member, task.ID, "hello")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, f.member, updated.Comments[0].Author)
	assert.Equal(t, "hello", updated.Comments[0].Content)
}

func TestDeleteTaskRemovesReferenceOnce(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	t1 := f.createTask(t, f.member, f.member, "T1", time.Now())
	t2 := f.createTask(t, f.member, f.member, "T2", time.Now())

	assert.ErrorIs(t, f.tasks.DeleteTask(ctx, f.member, t1.ID), services.ErrForbidden)

	require.NoError(t, f.tasks.DeleteTask(ctx, f.owner, t1.ID))
	p, err := f.projects.GetProject(ctx, f.owner, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{t2.ID}, p.Tasks)

	_, err = f.tasks.GetTask(ctx, f.owner, t1.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, f.tasks.DeleteTask(ctx, f.owner, t1.ID), services.ErrNotFound)
}

func TestListUserTasksSortedByDueDate(t *testing.T) {
	f := newTaskFixture(t)
	now := time.Now()
	late := f.createTask(t, f.owner, f.member, "late", now.Add(48*time.Hour))
	soon := f.createTask(t, f.owner, f.member, "soon", now.Add(time.Hour))
	f.createTask(t, f.owner, f.owner, "other", now)

	tasks, err := f.tasks.ListUserTasks(context.Background(), f.member)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, soon.ID, tasks[0].ID)
	assert.Equal(t, late.ID, tasks[1].ID)
}

func TestRemovedMemberLosesAssignedTasks(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	other, err := f.projects.CreateProject(ctx, f.member, services.CreateProjectInput{Name: "Beta"})
	require.NoError(t, err)
	due := time.Now().Add(time.Hour)
	kept, err := f.tasks.CreateTask(ctx, f.member, services.CreateTaskInput{ProjectID: other.ID, Title: "own", Assignee: f.member, DueDate: &due})
	require.NoError(t, err)

	_, err = f.projects.RemoveMember(ctx, f.owner, f.project.ID, f.member)
	require.NoError(t, err)

	_, err = f.tasks.GetTask(ctx, f.member, task.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	tasks, err := f.tasks.ListUserTasks(ctx, f.member)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, kept.ID, tasks[0].ID)
}
