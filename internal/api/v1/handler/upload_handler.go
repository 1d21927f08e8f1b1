package handler

import (
	"net/http"

	"imaginify/internal/api/v1/dto"
	"imaginify/internal/service"

	"github.com/go-playground/validator/v10"
)

// UploadHandler handles direct-to-bucket uploads.
type UploadHandler struct {
	uploadService service.UploadService
	validate      *validator.Validate
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService service.UploadService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, validate: v}
}

// RegisterRoutes mounts v1 upload routes
func (h *UploadHandler) RegisterRoutes(mux Router, authMw Middleware, limit Limiter) {
	mux.Handle("POST /v1/uploads", authMw(limit("uploads.initiate")(http.HandlerFunc(h.initiateUpload))))
	mux.Handle("POST /v1/uploads/{uploadId}/complete", authMw(http.HandlerFunc(h.completeUpload)))
}

// initiateUpload godoc
// @Summary Start an upload
// @Tags uploads
// @Accept json
// @Produce json
// @Param payload body dto.UploadInitDTO true "Request payload"
// @Success 201 {object} service.UploadTicket
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 429 {object} map[string]string "rate limited"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/uploads [post]
func (h *UploadHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	// 1. Extract subject from context
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}

	// 2. Decode and validate request body
	var req dto.UploadInitDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// 3. Presign the staging object
	ticket, err := h.uploadService.InitiateUpload(r.Context(), clerkID, req.Filename, req.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// completeUpload godoc
// @Summary Finish an upload and import it
// @Tags uploads
// @Produce json
// @Param uploadId path string true "Upload ID"
// @Success 200 {object} media.Asset
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/uploads/{uploadId}/complete [post]
func (h *UploadHandler) completeUpload(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	asset, err := h.uploadService.CompleteUpload(r.Context(), clerkID, r.PathValue("uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}
