package handlers

import (
	"net/http"

	"project-tracker/models"
	"project-tracker/services"
)

type ProjectHandler struct {
	Service *services.ProjectService
	Views   *services.ViewService
	errs    errorWriter
}

func NewProjectHandler(service *services.ProjectService, views *services.ViewService, dev bool) *ProjectHandler {
	return &ProjectHandler{Service: service, Views: views, errs: errorWriter{dev: dev}}
}

// writeProject renders p with owner, members and tasks populated.
func (h *ProjectHandler) writeProject(w http.ResponseWriter, r *http.Request, status int, p *models.Project) {
	view, err := h.Views.Project(r.Context(), p)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, status, view)
}

type memberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type createProjectRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	StartDate   *Date           `json:"startDate"`
	EndDate     *Date           `json:"endDate"`
	Members     []memberRequest `json:"members"`
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	in := services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatus(req.Status),
		StartDate:   req.StartDate.ptr(),
		EndDate:     req.EndDate.ptr(),
	}
	for _, m := range req.Members {
		id := optionalID(m.UserID, "members", verr)
		in.Members = append(in.Members, services.MemberInput{UserID: id, Role: models.MemberRole(m.Role)})
	}
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	project, err := h.Service.CreateProject(r.Context(), caller(r), in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeProject(w, r, http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Service.ListProjects(r.Context(), caller(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	views, err := h.Views.Projects(r.Context(), projects)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	project, err := h.Service.GetProject(r.Context(), caller(r), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeProject(w, r, http.StatusOK, project)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	raw, err := decodePatch(w, r, "name", "description", "status", "endDate")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	patch := models.ProjectPatch{
		Name:        patchField[string](raw, "name", verr),
		Description: patchField[string](raw, "description", verr),
		Status:      patchField[models.ProjectStatus](raw, "status", verr),
		EndDate:     patchField[Date](raw, "endDate", verr).ptr(),
	}
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	project, err := h.Service.UpdateProject(r.Context(), caller(r), id, patch)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeProject(w, r, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.Service.DeleteProject(r.Context(), caller(r), id); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	userID := optionalID(req.UserID, "userId", verr)
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	project, err := h.Service.AddMember(r.Context(), caller(r), id, services.MemberInput{
		UserID: userID,
		Role:   models.MemberRole(req.Role),
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeProject(w, r, http.StatusOK, project)
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	project, err := h.Service.RemoveMember(r.Context(), caller(r), id, userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	h.writeProject(w, r, http.StatusOK, project)
}

func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "projectId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	stats, err := h.Service.Stats(r.Context(), caller(r), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
