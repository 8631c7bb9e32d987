package handlers

import (
	"context"
	"net/http"

	"project-tracker/middleware"
	"project-tracker/services"
	"project-tracker/utils"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Deps struct {
	Users       *services.UserService
	Projects    *services.ProjectService
	Tasks       *services.TaskService
	Attachments *services.AttachmentService
	Reports     *services.ReportService
	Views       *services.ViewService
	Tokens      *utils.JWTManager
	Ping        func(ctx context.Context) error

	CORSOrigins    []string
	MaxUploadBytes int64
	Dev            bool
}

const objectID = "[0-9a-fA-F]{24}"

// NewRouter wires every route. Only /health, register and login are public.
func NewRouter(d Deps) http.Handler {
	userHandler := NewUserHandler(d.Users, d.Dev)
	projectHandler := NewProjectHandler(d.Projects, d.Views, d.Dev)
	taskHandler := NewTaskHandler(d.Tasks, d.Views, d.Dev)
	attachmentHandler := NewAttachmentHandler(d.Attachments, d.Views, d.MaxUploadBytes, d.Dev)
	reportHandler := NewReportHandler(d.Reports, d.Dev)
	healthHandler := &HealthHandler{Ping: d.Ping}

	r := mux.NewRouter()
	r.Use(middleware.AccessLog)

	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/users/register", userHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login", userHandler.Login).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTAuthMiddleware(d.Tokens, d.Users.Exists))

	api.HandleFunc("/users/profile", userHandler.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/profile", userHandler.UpdateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/users/users", userHandler.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/users/{userId:"+objectID+"}/role", userHandler.UpdateRole).Methods(http.MethodPatch)
	api.HandleFunc("/users/users/{userId:"+objectID+"}", userHandler.DeleteUser).Methods(http.MethodDelete)

	api.HandleFunc("/projects", projectHandler.CreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", projectHandler.ListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}", projectHandler.GetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}", projectHandler.UpdateProject).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{projectId}", projectHandler.DeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{projectId}/members", projectHandler.AddMember).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectId}/members/{userId}", projectHandler.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{projectId}/stats", projectHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}/report", reportHandler.Generate).Methods(http.MethodGet, http.MethodPost)

	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/user", taskHandler.ListUserTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/project/{projectId}", taskHandler.ListProjectTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/project/{projectId}/stats", taskHandler.ProjectStats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}", taskHandler.GetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskId}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskId}/comments", taskHandler.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/attachments", attachmentHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}/attachments/{attachmentId}", attachmentHandler.Download).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}/attachments/{attachmentId}", attachmentHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/uploads/{ref}", attachmentHandler.DownloadByRef).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
