package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingestion-portal/internal/qos"
)

func (h *Handler) ListSchoolLists(c *gin.Context) {
	page, pageSize, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.svc.QoS.ListSchoolLists(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetSchoolList(c *gin.Context) {
	list, err := h.svc.QoS.GetSchoolList(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateSchoolList(c *gin.Context) {
	var in qos.SchoolListInput
	if !bindJSON(c, &in) {
		return
	}

	p, _ := identity(c)
	list, err := h.svc.QoS.CreateSchoolList(c.Request.Context(), p, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) UpdateSchoolList(c *gin.Context) {
	var in qos.SchoolListInput
	if !bindJSON(c, &in) {
		return
	}

	list, err := h.svc.QoS.UpdateSchoolList(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetConnectivity(c *gin.Context) {
	conn, err := h.svc.QoS.GetConnectivity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (h *Handler) PutConnectivity(c *gin.Context) {
	var in qos.ConnectivityInput
	if !bindJSON(c, &in) {
		return
	}

	conn, err := h.svc.QoS.PutConnectivity(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}
