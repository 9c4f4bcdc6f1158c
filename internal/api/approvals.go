package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/model"
)

func (h *Handler) ListApprovalRequests(c *gin.Context) {
	_, caps := identity(c)
	summaries, err := h.svc.Approvals.List(c.Request.Context(), caps)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) GetApprovalRequest(c *gin.Context) {
	page, pageSize, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	_, caps := identity(c)
	subpath := strings.TrimPrefix(c.Param("subpath"), "/")
	detail, err := h.svc.Approvals.Get(c.Request.Context(), caps, subpath, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) ApproveRows(c *gin.Context) {
	var req model.ApproveRequest
	if !bindJSON(c, &req) {
		return
	}

	p, caps := identity(c)
	approved, err := h.svc.Approvals.Approve(c.Request.Context(), caps, p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approved)
}

func (h *Handler) SetApprovalEnabled(c *gin.Context) {
	var req model.SetApprovalEnabledRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.svc.Approvals.SetEnabled(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
