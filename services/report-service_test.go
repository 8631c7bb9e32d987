package services_test

import (
	"context"
	"testing"
	"time"

	"project-tracker/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildReportFollowsTaskOrder(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	now := time.Now()
	first := f.createTask(t, f.owner, f.member, "first", now.Add(-time.Hour))
	second := f.createTask(t, f.member, f.owner, "second", now.Add(time.Hour))

	_, err := f.reports.BuildReport(ctx, f.outsider, f.project.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.reports.BuildReport(ctx, f.owner, primitive.NewObjectID())
	assert.ErrorIs(t, err, services.ErrNotFound)

	rep, err := f.reports.BuildReport(ctx, f.member, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", rep.Owner.Name)
	require.Len(t, rep.Members, 2)
	assert.Equal(t, "u2", rep.Members[1].User.Name)

	require.Len(t, rep.Tasks, 2)
	assert.Equal(t, first.ID, rep.Tasks[0].Task.ID)
	assert.True(t, rep.Tasks[0].Overdue)
	assert.Equal(t, "u2", rep.Tasks[0].Assignee.Name)
	assert.Equal(t, second.ID, rep.Tasks[1].Task.ID)
	assert.Equal(t, "u2", rep.Tasks[1].Reporter.Name)

	assert.Equal(t, 2, rep.Stats.TotalTasks)
	assert.Equal(t, 1, rep.Stats.OverdueTasks)
}

func TestBuildReportHandlesDeletedUsers(t *testing.T) {
	f := newTaskFixture(t)
	f.createTask(t, f.owner, f.member, "first", time.Now())
	f.db.DropUser(f.member)

	rep, err := f.reports.BuildReport(context.Background(), f.owner, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Unknown user", rep.Tasks[0].Assignee.Name)
	assert.Equal(t, f.member, rep.Tasks[0].Assignee.ID)
}
