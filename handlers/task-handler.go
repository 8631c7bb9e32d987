package handlers

import (
	"net/http"

	"project-tracker/models"
	"project-tracker/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskHandler struct {
	Service *services.TaskService
	Views   *services.ViewService
	errs    errorWriter
}

func NewTaskHandler(service *services.TaskService, views *services.ViewService, dev bool) *TaskHandler {
	return &TaskHandler{Service: service, Views: views, errs: errorWriter{dev: dev}}
}

type createTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ProjectID      string   `json:"projectId"`
	AssigneeID     string   `json:"assigneeId"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	DueDate        *Date    `json:"dueDate"`
	Tags           []string `json:"tags"`
	EstimatedHours float64  `json:"estimatedHours"`
	ActualHours    float64  `json:"actualHours"`
}

type commentRequest struct {
	Content string `json:"content"`
}

var taskPatchKeys = []string{
	"title", "description", "status", "priority", "dueDate",
	"assignee", "tags", "estimatedHours", "actualHours",
}

// writeTask renders t with its project, people and comment authors populated.
func writeTask(w http.ResponseWriter, r *http.Request, views *services.ViewService, errs errorWriter, status int, t *models.Task) {
	view, err := views.Task(r.Context(), t)
	if err != nil {
		errs.write(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

func (h *TaskHandler) writeTasks(w http.ResponseWriter, r *http.Request, tasks []models.Task) {
	views, err := h.Views.Tasks(r.Context(), tasks)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	projectID := optionalID(req.ProjectID, "projectId", verr)
	assignee := optionalID(req.AssigneeID, "assigneeId", verr)
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	task, err := h.Service.CreateTask(r.Context(), caller(r), services.CreateTaskInput{
		ProjectID:      projectID,
		Title:          req.Title,
		Description:    req.Description,
		Assignee:       assignee,
		Status:         models.TaskStatus(req.Status),
		Priority:       models.Priority(req.Priority),
		DueDate:        req.DueDate.ptr(),
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTask(w, r, h.Views, h.errs, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	task, err := h.Service.GetTask(r.Context(), caller(r), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTask(w, r, h.Views, h.errs, http.StatusOK, task)
}

func (h *TaskHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	tasks, err := h.Service.ListProjectTasks(r.Context(), caller(r), projectID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeTasks(w, r, tasks)
}

func (h *TaskHandler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Service.ListUserTasks(r.Context(), caller(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeTasks(w, r, tasks)
}

func (h *TaskHandler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	stats, err := h.Service.ProjectStats(r.Context(), caller(r), projectID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	raw, err := decodePatch(w, r, taskPatchKeys...)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	patch := models.TaskPatch{
		Title:          patchField[string](raw, "title", verr),
		Description:    patchField[string](raw, "description", verr),
		Status:         patchField[models.TaskStatus](raw, "status", verr),
		Priority:       patchField[models.Priority](raw, "priority", verr),
		DueDate:        patchField[Date](raw, "dueDate", verr).ptr(),
		Assignee:       patchField[primitive.ObjectID](raw, "assignee", verr),
		Tags:           patchField[[]string](raw, "tags", verr),
		EstimatedHours: patchField[float64](raw, "estimatedHours", verr),
		ActualHours:    patchField[float64](raw, "actualHours", verr),
	}
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	task, err := h.Service.UpdateTask(r.Context(), caller(r), id, patch)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTask(w, r, h.Views, h.errs, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.Service.DeleteTask(r.Context(), caller(r), id); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	task, err := h.Service.AddComment(r.Context(), caller(r), id, req.Content)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTask(w, r, h.Views, h.errs, http.StatusCreated, task)
}
