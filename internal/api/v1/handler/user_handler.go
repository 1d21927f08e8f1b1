package handler

import (
	"net/http"

	"imaginify/internal/api/v1/dto"
	"imaginify/internal/model"
	"imaginify/internal/service"

	"github.com/go-playground/validator/v10"
)

// UserHandler handles the caller's own user record.
type UserHandler struct {
	userService  service.UserService
	imageService service.ImageService
	validate     *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService, imageService service.ImageService, v *validator.Validate) *UserHandler {
	return &UserHandler{userService: userService, imageService: imageService, validate: v}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux Router, authMw Middleware) {
	mux.Handle("POST /v1/users/me", authMw(http.HandlerFunc(h.createUser)))
	mux.Handle("GET /v1/users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("PUT /v1/users/me", authMw(http.HandlerFunc(h.updateUser)))
	mux.Handle("DELETE /v1/users/me", authMw(http.HandlerFunc(h.deleteUser)))
	mux.Handle("GET /v1/users/me/images", authMw(http.HandlerFunc(h.getUserImages)))
}

// createUser godoc
// @Summary Register the authenticated caller
// @Tags users
// @Accept json
// @Produce json
// @Param payload body dto.UserCreateDTO true "Request payload"
// @Success 201 {object} dto.UserResponseDTO
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 409 {object} map[string]string "user already exists"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/users/me [post]
func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	// 1. Extract subject from context
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}

	// 2. Decode and validate request body
	var req dto.UserCreateDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// 3. Create the profile
	u, err := h.userService.Create(r.Context(), clerkID, profileFrom(req))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// 4. Return response
	writeJSON(w, http.StatusCreated, userResponse(u))
}

// getUser godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/users/me [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	u, err := h.userService.GetByClerkID(r.Context(), clerkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(u))
}

// updateUser godoc
// @Summary Update the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Param payload body dto.UserCreateDTO true "Request payload"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/users/me [put]
func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	var req dto.UserCreateDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.userService.UpdateProfile(r.Context(), clerkID, profileFrom(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(u))
}

// deleteUser godoc
// @Summary Delete the caller and their images
// @Tags users
// @Produce json
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/users/me [delete]
func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), clerkID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUserImages godoc
// @Summary List the caller's images
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} model.ImagePage
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/users/me/images [get]
func (h *UserHandler) getUserImages(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.imageService.ListUserImages(r.Context(), clerkID, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func profileFrom(req dto.UserCreateDTO) service.Profile {
	return service.Profile{
		Email:     req.Email,
		Username:  req.Username,
		Photo:     req.Photo,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
}

func userResponse(u *model.User) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		ID:            u.ID,
		ClerkID:       u.ClerkID,
		Email:         u.Email,
		Username:      u.Username,
		Photo:         u.Photo,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PlanID:        u.PlanID,
		CreditBalance: u.CreditBalance,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
