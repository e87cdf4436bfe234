package handlers

import (
	"net/http"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) AddContentCopy(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.AddContentCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cc, err := h.copySvc.AddContentCopy(c.Request.Context(), session, c.Param("id"), req.ToContentCopy())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToContentCopyResponse(*cc))
}

func (h *Handler) RemoveContentCopy(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	copyID, err := uuid.Parse(c.Param("copy_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content copy id"})
		return
	}

	if err := h.copySvc.RemoveContentCopy(c.Request.Context(), session, c.Param("id"), copyID); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) UpdateLinkedData(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.UpdateLinkedDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.copySvc.UpdateLinkedData(c.Request.Context(), session, c.Param("id"), domain.LinkedDataUpdate{
		ExternalDmsID: req.ExternalDmsID,
		ExternalCode:  req.ExternalCode,
	})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(e))
}

func (h *Handler) GetHistory(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	entries, err := h.copySvc.History(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.ToHistoryEntryResponse(entry))
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{Items: items})
}
