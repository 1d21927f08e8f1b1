package handler

import (
	"net/http"

	"imaginify/internal/api/v1/dto"
	"imaginify/internal/service"

	"github.com/go-playground/validator/v10"
)

// ImageHandler handles image records.
type ImageHandler struct {
	imageService service.ImageService
	validate     *validator.Validate
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService service.ImageService, v *validator.Validate) *ImageHandler {
	return &ImageHandler{imageService: imageService, validate: v}
}

// RegisterRoutes mounts v1 image routes. Reads are public.
func (h *ImageHandler) RegisterRoutes(mux Router, authMw Middleware) {
	mux.Handle("GET /v1/images", http.HandlerFunc(h.listImages))
	mux.Handle("GET /v1/images/{id}", http.HandlerFunc(h.getImage))
	mux.Handle("PUT /v1/images/{id}", authMw(http.HandlerFunc(h.updateImage)))
	mux.Handle("DELETE /v1/images/{id}", authMw(http.HandlerFunc(h.deleteImage)))
}

// listImages godoc
// @Summary List images
// @Tags images
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param query query string false "Search text"
// @Success 200 {object} model.ImagePage
// @Failure 400 {object} map[string]string "invalid request"
// @Router /v1/images [get]
func (h *ImageHandler) listImages(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q.Query = r.URL.Query().Get("query")
	page, err := h.imageService.ListImages(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// getImage godoc
// @Summary Get an image
// @Tags images
// @Produce json
// @Param id path string true "Image ID"
// @Success 200 {object} model.Image
// @Failure 404 {object} map[string]string "not found"
// @Router /v1/images/{id} [get]
func (h *ImageHandler) getImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.imageService.GetImageByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// updateImage godoc
// @Summary Rename an image
// @Tags images
// @Accept json
// @Produce json
// @Param id path string true "Image ID"
// @Param payload body dto.ImageUpdateDTO true "Request payload"
// @Success 200 {object} model.Image
// @Failure 400 {object} map[string]string "invalid request"
// @Failure 403 {object} map[string]string "not the author"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/images/{id} [put]
func (h *ImageHandler) updateImage(w http.ResponseWriter, r *http.Request) {
	// 1. Extract subject from context
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}

	// 2. Decode and validate request body
	var req dto.ImageUpdateDTO
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// 3. Load the current record and apply the edit
	img, err := h.imageService.GetImageByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	img.Title = req.Title

	// 4. Persist; the service rejects non-authors
	updated, err := h.imageService.UpdateImage(r.Context(), clerkID, img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteImage godoc
// @Summary Delete an image
// @Tags images
// @Produce json
// @Param id path string true "Image ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "not the author"
// @Failure 404 {object} map[string]string "not found"
// @Failure 401 {object} map[string]string "unauthenticated"
// @Router /v1/images/{id} [delete]
func (h *ImageHandler) deleteImage(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.imageService.DeleteImage(r.Context(), clerkID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listQuery(r *http.Request) (service.ListQuery, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.ListQuery{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.ListQuery{}, err
	}
	return service.ListQuery{Page: page, Limit: limit}, nil
}
