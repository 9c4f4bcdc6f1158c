package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListSchemas(c *gin.Context) {
	names, err := h.svc.Schemas.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *Handler) GetSchema(c *gin.Context) {
	schema, err := h.svc.Schemas.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}
