package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"project-tracker/internal/fakedb"
	"project-tracker/models"
	"project-tracker/services"
	"project-tracker/storage"
	"project-tracker/utils"

	"github.com/stretchr/testify/require"
)

const testMaxUpload = 10 << 20

type testServer struct {
	t       *testing.T
	handler http.Handler
	dir     string
	db      *fakedb.DB
	pingErr error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	db := fakedb.New()
	users, projects, tasks := db.Users(), db.Projects(), db.Tasks()
	tokens := utils.NewJWTManager("handler-secret", time.Hour)

	s := &testServer{t: t, dir: dir, db: db}
	s.handler = NewRouter(Deps{
		Users:          services.NewUserService(users, tokens, nil),
		Projects:       services.NewProjectService(projects, tasks, users, store),
		Tasks:          services.NewTaskService(tasks, projects, store),
		Attachments:    services.NewAttachmentService(tasks, projects, store, testMaxUpload, []string{"text/plain", "application/pdf"}),
		Reports:        services.NewReportService(projects, tasks, users),
		Views:          services.NewViewService(users, projects, tasks),
		Tokens:         tokens,
		Ping:           func(context.Context) error { return s.pingErr },
		CORSOrigins:    []string{"http://localhost:4200"},
		MaxUploadBytes: testMaxUpload,
	})
	return s
}

func (s *testServer) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path, token string, v interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(s.t, err)
		body = bytes.NewReader(b)
	}
	return s.do(method, path, token, body, "application/json")
}

type testUser struct {
	ID    string
	Token string
}

func (s *testServer) register(name string) testUser {
	s.t.Helper()
	rec := s.doJSON(http.MethodPost, "/api/users/register", "", map[string]string{
		"name":     name,
		"email":    name + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	decode(s.t, rec, &resp)
	return testUser{ID: resp.User.ID.Hex(), Token: resp.Token}
}

func (s *testServer) createProject(owner testUser, members ...testUser) models.ProjectView {
	s.t.Helper()
	var list []map[string]string
	for _, m := range members {
		list = append(list, map[string]string{"userId": m.ID})
	}
	rec := s.doJSON(http.MethodPost, "/api/projects", owner.Token, map[string]interface{}{
		"name":    "Apollo",
		"members": list,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.ProjectView
	decode(s.t, rec, &p)
	return p
}

func (s *testServer) createTask(actor testUser, projectID, assignee string) models.TaskView {
	s.t.Helper()
	rec := s.doJSON(http.MethodPost, "/api/tasks", actor.Token, map[string]interface{}{
		"title":      "Write docs",
		"projectId":  projectID,
		"assigneeId": assignee,
		"dueDate":    time.Now().Add(48 * time.Hour).Format("2006-01-02"),
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.TaskView
	decode(s.t, rec, &task)
	return task
}

func (s *testServer) files() []string {
	s.t.Helper()
	entries, err := os.ReadDir(s.dir)
	require.NoError(s.t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func multipartFile(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
