package handlers

import (
	"net/http"
	"strings"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Delete(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.deletionSvc.Delete(c.Request.Context(), session, req.IDs, domain.DeleteOptions{Reason: req.Reason})
	if err != nil {
		log.WithError(err).WithField("user_id", session.UserID).Warn("Delete rejected")
		mapDomainError(c, err)
		return
	}
	if id == nil {
		c.JSON(http.StatusOK, dto.DeleteResponse{})
		return
	}

	c.JSON(http.StatusCreated, dto.DeleteResponse{DeletionID: id})
}

func (h *Handler) ListDeletions(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	limit, offset := pagination(c)
	filter := ports.DeletionFilter{
		Status:      domain.DeletionStatus(strings.ToUpper(c.Query("status"))),
		OwnerUserID: c.Query("owner"),
		Limit:       limit,
		Offset:      offset,
	}

	sets, total, err := h.deletionSvc.ListDeletions(c.Request.Context(), session, filter)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.DeletionResponse, 0, len(sets))
	for _, d := range sets {
		items = append(items, dto.ToDeletionResponse(d))
	}

	c.JSON(http.StatusOK, dto.ListDeletionsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetDeletion(c *gin.Context) {
	session, id, ok := deletionRequest(c)
	if !ok {
		return
	}

	d, err := h.deletionSvc.GetDeletion(c.Request.Context(), session, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeletionResponse(d))
}

func (h *Handler) RevertDeletion(c *gin.Context) {
	session, id, ok := deletionRequest(c)
	if !ok {
		return
	}

	if err := h.deletionSvc.Revert(c.Request.Context(), session, id); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) PurgeDeletion(c *gin.Context) {
	session, id, ok := deletionRequest(c)
	if !ok {
		return
	}

	if err := h.deletionSvc.Purge(c.Request.Context(), session, id); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetManifest(c *gin.Context) {
	session, id, ok := deletionRequest(c)
	if !ok {
		return
	}

	m, err := h.deletionSvc.Manifest(c.Request.Context(), session, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

func (h *Handler) ListManifests(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	ids, err := h.deletionSvc.ListManifests(c.Request.Context(), session)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}

	c.JSON(http.StatusOK, dto.ListManifestsResponse{Items: ids})
}

// deletionRequest reads the session and the :id path parameter, writing the
// error response itself when either is missing.
func deletionRequest(c *gin.Context) (domain.Session, uuid.UUID, bool) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return domain.Session{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deletion id"})
		return domain.Session{}, uuid.Nil, false
	}
	return session, id, true
}
