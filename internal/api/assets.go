package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/erazemk/assettrack/internal/imaging"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/service"
)

// AssetsHandler handles the asset registry endpoints.
type AssetsHandler struct {
	Svc *service.Service
}

// multipartSlack leaves room for the text fields next to the image part.
const multipartSlack = 1 << 20

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "multipart/form-data"
}

// readAssetForm decodes an asset from JSON or from a multipart form with an
// optional "image" part. The returned close func must always be called.
func readAssetForm(w http.ResponseWriter, r *http.Request) (service.AssetInput, io.Reader, func(), error) {
	var in service.AssetInput
	noop := func() {}

	if !isMultipart(r) {
		err := decodeJSON(r, &in)
		return in, nil, noop, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		return in, nil, noop, err
	}

	in.Name = r.FormValue("name")
	in.SerialNumber = r.FormValue("serial_number")
	in.Status = r.FormValue("status")
	if v := r.FormValue("category_id"); v != "" {
		in.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, nil
	}
	if err != nil {
		return in, nil, noop, err
	}
	return in, file, func() { file.Close() }, nil
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AssetFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		filter.CategoryID = id
	}

	assets, err := h.Svc.ListAssets(r.Context(), principal(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assets))
}

// Available handles GET /api/assets/available.
func (h *AssetsHandler) Available(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Svc.ListAvailableAssets(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(assets))
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, image, closeImage, err := readAssetForm(w, r)
	defer closeImage()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.Svc.CreateAsset(r.Context(), principal(r), in, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, asset)
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	asset, err := h.Svc.GetAsset(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Update handles PUT /api/assets/{id}.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	in, image, closeImage, err := readAssetForm(w, r)
	defer closeImage()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.Svc.UpdateAsset(r.Context(), principal(r), id, in, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	if err := h.Svc.DeleteAsset(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

// UploadImage handles PUT /api/assets/{id}/image.
func (h *AssetsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	asset, err := h.Svc.ReplaceAssetImage(r.Context(), principal(r), id, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// GetImage handles GET /api/assets/{id}/image.
func (h *AssetsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	rc, err := h.Svc.OpenAssetImage(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", imaging.OutputMIME)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	io.Copy(w, rc)
}

// History handles GET /api/assets/{id}/history.
func (h *AssetsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	history, err := h.Svc.AssetHistory(r.Context(), principal(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(history))
}

// Assign handles POST /api/assets/{id}/assign.
func (h *AssetsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req service.AssignInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, err := h.Svc.AssignAsset(r.Context(), principal(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, assignment)
}

// Return handles POST /api/assets/{id}/return. The body is optional.
func (h *AssetsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var req service.ReturnInput
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	assignment, err := h.Svc.ReturnAsset(r.Context(), principal(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, assignment)
}
