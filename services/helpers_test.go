package services_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"project-tracker/internal/fakedb"
	"project-tracker/models"
	"project-tracker/services"
	"project-tracker/storage"
	"project-tracker/utils"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testMimeTypes = []string{"text/plain", "application/pdf", "image/png"}

type testEnv struct {
	db          *fakedb.DB
	dir         string
	store       *storage.LocalStore
	users       *services.UserService
	projects    *services.ProjectService
	tasks       *services.TaskService
	attachments *services.AttachmentService
	reports     *services.ReportService
	views       *services.ViewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	db := fakedb.New()
	users, projects, tasks := db.Users(), db.Projects(), db.Tasks()
	return &testEnv{
		db:          db,
		dir:         dir,
		store:       store,
		users:       services.NewUserService(users, utils.NewJWTManager("test-secret", time.Hour), map[string]bool{"123456": true}),
		projects:    services.NewProjectService(projects, tasks, users, store),
		tasks:       services.NewTaskService(tasks, projects, store),
		attachments: services.NewAttachmentService(tasks, projects, store, 10, testMimeTypes),
		reports:     services.NewReportService(projects, tasks, users),
		views:       services.NewViewService(users, projects, tasks),
	}
}

func (e *testEnv) addUser(t *testing.T, name string) primitive.ObjectID {
	t.Helper()
	u := models.User{
		ID:    primitive.NewObjectID(),
		Name:  name,
		Email: name + "@example.com",
		Role:  models.RoleMember,
	}
	require.NoError(t, e.db.Users().Create(context.Background(), &u))
	return u.ID
}

func (e *testEnv) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	var names []string
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func ptr[T any](v T) *T { return &v }

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
