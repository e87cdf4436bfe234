package handlers

import (
	"net/http"
	"strings"

	"dms-object-service/internal/adapters/primary/http/dto"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListEntities(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	limit, offset := pagination(c)
	filter := ports.EntityFilter{
		Kind:        domain.EntityKind(strings.ToUpper(c.Query("kind"))),
		SpaceCode:   strings.ToUpper(c.Query("space")),
		ProjectCode: strings.ToUpper(c.Query("project")),
		Code:        strings.ToUpper(c.Query("code")),
		Search:      c.Query("search"),
		Limit:       limit,
		Offset:      offset,
	}

	entities, total, err := h.entitySvc.List(c.Request.Context(), session, filter)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EntityResponse, 0, len(entities))
	for _, e := range entities {
		items = append(items, dto.ToEntityResponse(e))
	}

	c.JSON(http.StatusOK, dto.ListEntitiesResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetEntity(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	e, err := h.entitySvc.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(e))
}

func (h *Handler) CreateEntity(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.entitySvc.Create(c.Request.Context(), session, req.ToDraft())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntityResponse(e))
}

func (h *Handler) UpdateEntity(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.entitySvc.Update(c.Request.Context(), session, c.Param("id"), domain.EntityUpdate{
		Description: req.Description,
		Properties:  req.Properties,
	})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(e))
}

func (h *Handler) FreezeEntity(c *gin.Context) {
	session, err := getSession(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	var req dto.FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.entitySvc.Freeze(c.Request.Context(), session, c.Param("id"), req.ToFlags())
	if err != nil {
		log.WithError(err).WithField("entity_id", c.Param("id")).Warn("Freeze failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(e))
}
