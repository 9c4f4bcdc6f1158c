package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/upload"
	perrors "ingestion-portal/pkg/errors"
)

func (h *Handler) ListUploads(c *gin.Context) {
	page, pageSize, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	p, caps := identity(c)
	result, err := h.svc.Uploads.List(c.Request.Context(), p, caps, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetUpload(c *gin.Context) {
	p, caps := identity(c)
	u, err := h.svc.Uploads.Get(c.Request.Context(), p, caps, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) GetQualityReport(c *gin.Context) {
	p, caps := identity(c)
	report, err := h.svc.Uploads.QualityReport(c.Request.Context(), p, caps, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", report)
}

// CreateUpload accepts a multipart form with the file and its metadata.
func (h *Handler) CreateUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, perrors.NewValidationError("file", "", "a file is required"))
		return
	}
	if header.Size > h.cfg.Upload.MaxFileSize {
		respondError(c, fmt.Errorf("%w: %d bytes", perrors.ErrFileTooLarge, header.Size))
		return
	}

	mapping, err := jsonFormField(c, "column_to_schema_mapping")
	if err != nil {
		respondError(c, err)
		return
	}
	license, err := jsonFormField(c, "column_license")
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Upload.MaxFileSize+1))
	if err != nil {
		respondError(c, err)
		return
	}

	p, _ := identity(c)
	created, err := h.svc.Uploads.Create(c.Request.Context(), p, upload.CreateInput{
		Filename:              header.Filename,
		Size:                  int64(len(data)),
		Data:                  data,
		Country:               c.PostForm("country"),
		Dataset:               c.PostForm("dataset"),
		Source:                c.PostForm("source"),
		Description:           c.PostForm("description"),
		ColumnToSchemaMapping: mapping,
		ColumnLicense:         license,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info().
		Str("upload_id", created.ID).
		Str("dataset", created.Dataset).
		Str("country", created.Country).
		Msg("Upload created")
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) SendUploadSuccessEmail(c *gin.Context) {
	p, caps := identity(c)
	if err := h.svc.Uploads.NotifyUploadSuccess(c.Request.Context(), p, caps, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Notification queued"})
}

func jsonFormField(c *gin.Context, name string) (map[string]interface{}, error) {
	raw := c.PostForm(name)
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, perrors.NewValidationError(name, raw, "must be a JSON object")
	}
	return out, nil
}
