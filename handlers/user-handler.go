package handlers

import (
	"net/http"

	"project-tracker/models"
	"project-tracker/services"
)

type UserHandler struct {
	Service *services.UserService
	errs    errorWriter
}

func NewUserHandler(service *services.UserService, dev bool) *UserHandler {
	return &UserHandler{Service: service, errs: errorWriter{dev: dev}}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, token, err := h.Service.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetProfile(r.Context(), caller(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	raw, err := decodePatch(w, r, "name", "email", "password")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	upd := services.ProfileUpdate{
		Name:     patchField[string](raw, "name", verr),
		Email:    patchField[string](raw, "email", verr),
		Password: patchField[string](raw, "password", verr),
	}
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), caller(r), upd)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context(), caller(r))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	raw, err := decodePatch(w, r, "role")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	verr := &services.ValidationError{}
	role := patchField[models.UserRole](raw, "role", verr)
	if err := verr.Err(); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, err := h.Service.UpdateRole(r.Context(), caller(r), userID, *role)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if err := h.Service.DeleteUser(r.Context(), caller(r), userID); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
