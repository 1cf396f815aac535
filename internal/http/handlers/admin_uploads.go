package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

const (
	menuPhotoMaxSide   = 1600
	menuPhotoThumbSize = 400
	menuPhotoQuality   = 82
)

// AdminUploadMenuPhoto accepts a multipart image, normalizes it (EXIF
// orientation, resize, JPEG) and stores a web rendition plus thumbnail on the
// object store. The item's previous photo is removed best-effort.
func (h *Handler) AdminUploadMenuPhoto(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if h.Store == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured")
		return
	}
	itemID, err := urlParamInt64(r, "itemID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxFileSizeBytes)
	if err := r.ParseMultipartForm(h.Config.MaxFileSizeBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Uploaded file is too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", "A file field named 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !utils.ValidateImageContentType(contentType) {
		contentType = utils.DetectContentType(data)
	}
	if !utils.ValidateImageContentType(contentType) {
		response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "Only image uploads are supported")
		return
	}

	var oldImageURL pgtype.Text
	err = h.DB.QueryRow(r.Context(), `
		select image_url from menu_items where id = $1 and tenant_id = $2
	`, itemID, authCtx.TenantID).Scan(&oldImageURL)
	if err != nil {
		response.Error(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	photo, err := utils.ProcessMenuPhoto(data, menuPhotoMaxSide, menuPhotoThumbSize, menuPhotoQuality)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_FILE", "File could not be decoded as an image")
		return
	}

	stamp := time.Now().UnixMilli()
	baseKey := fmt.Sprintf("tenants/%d/menu/%d/%d", authCtx.TenantID, itemID, stamp)
	fullURL, err := h.Store.PutObject(r.Context(), baseKey+".jpg", photo.Full, "image/jpeg")
	if err != nil {
		h.Logger.Error("menu photo upload failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to store photo")
		return
	}
	thumbURL, err := h.Store.PutObject(r.Context(), baseKey+"_thumb.jpg", photo.Thumb, "image/jpeg")
	if err != nil {
		h.Logger.Error("menu thumbnail upload failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Failed to store photo")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update menu_items set image_url = $1, updated_at = now() where id = $2 and tenant_id = $3
	`, fullURL, itemID, authCtx.TenantID)
	if err != nil || tag.RowsAffected() == 0 {
		if err != nil {
			h.Logger.Error("menu photo url update failed", zap.Error(err))
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save photo")
		return
	}

	if oldImageURL.Valid && oldImageURL.String != "" {
		if err := h.Store.DeleteURL(r.Context(), oldImageURL.String); err != nil {
			h.Logger.Warn("old menu photo cleanup failed", zap.String("url", oldImageURL.String), zap.Error(err))
		}
	}

	response.Success(w, map[string]any{
		"imageUrl": fullURL,
		"thumbUrl": thumbURL,
	})
}
