package handler

import (
	"net/http"

	"imaginify/internal/api/v1/dto"
	"imaginify/internal/apperror"
	"imaginify/internal/form"
	"imaginify/internal/service"

	"github.com/go-playground/validator/v10"
)

// TransformationHandler handles transformation forms.
type TransformationHandler struct {
	transformationService service.TransformationService
	validate              *validator.Validate
}

// NewTransformationHandler creates a new TransformationHandler.
func NewTransformationHandler(transformationService service.TransformationService, v *validator.Validate) *TransformationHandler {
	return &TransformationHandler{transformationService: transformationService, validate: v}
}

// RegisterRoutes mounts v1 transformation form routes. Applying a
// transformation spends credits and is rate limited.
func (h *TransformationHandler) RegisterRoutes(mux Router, authMw Middleware, limit Limiter) {
	mux.Handle("POST /v1/transformations", authMw(http.HandlerFunc(h.startDraft)))
	mux.Handle("GET /v1/transformations/{draftId}", authMw(http.HandlerFunc(h.getDraft)))
	mux.Handle("DELETE /v1/transformations/{draftId}", authMw(http.HandlerFunc(h.discardDraft)))
	mux.Handle("PUT /v1/transformations/{draftId}/image", authMw(http.HandlerFunc(h.setImage)))
	mux.Handle("PATCH /v1/transformations/{draftId}", authMw(http.HandlerFunc(h.updateFields)))
	mux.Handle("POST /v1/transformations/{draftId}/apply", authMw(limit("transformations.apply")(http.HandlerFunc(h.apply))))
	mux.Handle("POST /v1/transformations/{draftId}/save", authMw(http.HandlerFunc(h.save)))
}

// startDraft godoc
// @Summary Open a transformation form
// @Tags transformations
// @Accept json
// @Produce json
// @Param payload body dto.DraftCreateDTO true "Request payload"
// @Success 201 {object} form.Snapshot
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 403 {object} map[string]string "not the author"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations [post]
func (h *TransformationHandler) startDraft(w http.ResponseWriter, r *http.Request) {
	// 1. Extract subject from context
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}

	// 2. Decode request; one of type or image_id is needed
	var req dto.DraftCreateDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == "" && req.ImageID == "" {
		writeError(w, r, apperror.Validation("type or image_id is required"))
		return
	}

	// 3. Open the form
	snap, err := h.transformationService.StartDraft(r.Context(), clerkID, service.StartDraft{
		Type:    req.Type,
		ImageID: req.ImageID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// getDraft godoc
// @Summary Get a transformation form
// @Tags transformations
// @Produce json
// @Param draftId path string true "Draft ID"
// @Success 200 {object} form.Snapshot
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId} [get]
func (h *TransformationHandler) getDraft(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	snap, err := h.transformationService.GetDraft(r.Context(), clerkID, r.PathValue("draftId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// discardDraft godoc
// @Summary Discard a transformation form
// @Tags transformations
// @Produce json
// @Param draftId path string true "Draft ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId} [delete]
func (h *TransformationHandler) discardDraft(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.transformationService.Discard(r.Context(), clerkID, r.PathValue("draftId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setImage godoc
// @Summary Attach the uploaded image
// @Tags transformations
// @Accept json
// @Produce json
// @Param draftId path string true "Draft ID"
// @Param payload body dto.DraftImageDTO true "Request payload"
// @Success 200 {object} form.Snapshot
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId}/image [put]
func (h *TransformationHandler) setImage(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	var req dto.DraftImageDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.transformationService.SetImage(r.Context(), clerkID, r.PathValue("draftId"), form.Image{
		PublicID:  req.PublicID,
		SecureURL: req.SecureURL,
		Width:     req.Width,
		Height:    req.Height,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// updateFields godoc
// @Summary Update form fields
// @Tags transformations
// @Accept json
// @Produce json
// @Param draftId path string true "Draft ID"
// @Param payload body dto.DraftUpdateDTO true "Request payload"
// @Success 200 {object} form.Snapshot
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId} [patch]
func (h *TransformationHandler) updateFields(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	var req dto.DraftUpdateDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.transformationService.UpdateFields(r.Context(), clerkID, r.PathValue("draftId"), service.FieldUpdate{
		Title:       req.Title,
		AspectRatio: req.AspectRatio,
		Prompt:      req.Prompt,
		Color:       req.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// apply godoc
// @Summary Apply the pending transformation for a credit
// @Tags transformations
// @Produce json
// @Param draftId path string true "Draft ID"
// @Success 200 {object} service.ApplyResult
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 402 {object} map[string]string "insufficient credits"
// @Failure 404 {object} map[string]string "not found"
// @Failure 429 {object} map[string]string "rate limited"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId}/apply [post]
func (h *TransformationHandler) apply(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	res, err := h.transformationService.Apply(r.Context(), clerkID, r.PathValue("draftId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// save godoc
// @Summary Save the form as an image
// @Tags transformations
// @Produce json
// @Param draftId path string true "Draft ID"
// @Success 200 {object} model.Image
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 404 {object} map[string]string "not found"
// @Failure 409 {object} map[string]string "save in progress"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/transformations/{draftId}/save [post]
func (h *TransformationHandler) save(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	img, err := h.transformationService.Save(r.Context(), clerkID, r.PathValue("draftId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}
