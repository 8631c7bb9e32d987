package services_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"project-tracker/internal/fakedb"
	"project-tracker/models"
	"project-tracker/services"
	"project-tracker/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "text/plain", services.DetectMimeType("text/plain; charset=utf-8", "a.bin"))
	assert.Equal(t, "application/pdf", services.DetectMimeType("application/octet-stream", "report.PDF"))
	assert.Equal(t, "image/png", services.DetectMimeType("", "x.png"))
	assert.Equal(t, "application/octet-stream", services.DetectMimeType("", "noext"))
}

func TestUploadAndDownload(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	updated, err := f.attachments.Upload(ctx, f.member, task.ID, services.UploadInput{
		Filename: `C:\docs\notes.txt`,
		MimeType: "text/plain",
		Body:     strings.NewReader("hello"),
	})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 1)
	a := updated.Attachments[0]
	assert.Equal(t, "notes.txt", a.Filename)
	assert.Equal(t, storage.BackendDisk, a.Backend)
	assert.Equal(t, int64(5), a.Size)
	assert.Equal(t, f.member, a.UploadedBy)
	assert.Equal(t, []string{a.StorageRef}, f.files(t))

	dl, err := f.attachments.Open(ctx, f.owner, task.ID, a.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, dl.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	dl, err = f.attachments.OpenByRef(ctx, f.member, a.StorageRef)
	require.NoError(t, err)
	require.NoError(t, dl.Body.Close())
	assert.Equal(t, a.ID, dl.Attachment.ID)

	_, err = f.attachments.OpenByRef(ctx, f.outsider, a.StorageRef)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.attachments.OpenByRef(ctx, f.member, "../"+a.StorageRef)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

// Oversized or disallowed uploads leave no blob and no record.
func TestRejectedUploadsPersistNothing(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	_, err := f.attachments.Upload(ctx, f.member, task.ID, services.UploadInput{
		Filename: "big.txt", MimeType: "text/plain", Body: strings.NewReader("twelve bytes"),
	})
	assert.ErrorIs(t, err, services.ErrFileTooLarge)

	_, err = f.attachments.Upload(ctx, f.member, task.ID, services.UploadInput{
		Filename: "run.exe", MimeType: "application/x-msdownload", Body: strings.NewReader("MZ"),
	})
	assert.ErrorIs(t, err, services.ErrFileTypeNotAllowed)

	_, err = f.attachments.Upload(ctx, f.outsider, task.ID, services.UploadInput{
		Filename: "a.txt", MimeType: "text/plain", Body: strings.NewReader("hi"),
	})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.attachments.Upload(ctx, f.member, primitive.NewObjectID(), services.UploadInput{
		Filename: "a.txt", MimeType: "text/plain", Body: strings.NewReader("hi"),
	})
	assert.ErrorIs(t, err, services.ErrNotFound)

	got, err := f.tasks.GetTask(ctx, f.member, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)
	assert.Empty(t, f.files(t))
}

type vanishingTasks struct {
	fakedb.Tasks
}

func (v vanishingTasks) AddAttachment(ctx context.Context, id primitive.ObjectID, _ models.Attachment) error {
	_ = v.Tasks.Delete(ctx, id)
	return services.ErrNotFound
}

func TestUploadCleansUpWhenTaskDisappears(t *testing.T) {
	f := newTaskFixture(t)
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())
	svc := services.NewAttachmentService(vanishingTasks{f.db.Tasks()}, f.db.Projects(), f.store, 10, testMimeTypes)

	_, err := svc.Upload(context.Background(), f.member, task.ID, services.UploadInput{
		Filename: "a.txt", MimeType: "text/plain", Body: strings.NewReader("hi"),
	})
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Empty(t, f.files(t))
}

func TestDeleteAttachment(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	bystander := f.addUser(t, "u4")
	_, err := f.projects.AddMember(ctx, f.owner, f.project.ID, services.MemberInput{UserID: bystander})
	require.NoError(t, err)
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	updated, err := f.attachments.Upload(ctx, f.member, task.ID, services.UploadInput{
		Filename: "a.txt", MimeType: "text/plain", Body: strings.NewReader("hi"),
	})
	require.NoError(t, err)
	a := updated.Attachments[0]

	assert.ErrorIs(t, f.attachments.Delete(ctx, bystander, task.ID, a.ID), services.ErrForbidden)
	assert.ErrorIs(t, f.attachments.Delete(ctx, f.outsider, task.ID, a.ID), services.ErrForbidden)
	assert.ErrorIs(t, f.attachments.Delete(ctx, f.owner, task.ID, primitive.NewObjectID()), services.ErrNotFound)

	require.NoError(t, f.attachments.Delete(ctx, f.owner, task.ID, a.ID))
	assert.Empty(t, f.files(t))

	got, err := f.tasks.GetTask(ctx, f.member, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)

	_, err = f.attachments.Open(ctx, f.member, task.ID, a.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = f.attachments.OpenByRef(ctx, f.member, a.StorageRef)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteAttachmentToleratesMissingBlob(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.owner, f.member, "T1", time.Now())

	updated, err := f.attachments.Upload(ctx, f.member, task.ID, services.UploadInput{
		Filename: "a.txt", MimeType: "text/plain", Body: strings.NewReader("hi"),
	})
	require.NoError(t, err)
	a := updated.Attachments[0]
	require.NoError(t, f.store.Delete(ctx, a.StorageRef))

	require.NoError(t, f.attachments.Delete(ctx, f.member, task.ID, a.ID))
	got, err := f.tasks.GetTask(ctx, f.member, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Attachments)
}
