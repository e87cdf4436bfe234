package handlers

import (
	"strconv"
	"strings"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

const headerUserID = "X-User-ID"

type Handler struct {
	entitySvc   *services.EntityService
	deletionSvc *services.DeletionService
	copySvc     *services.ContentCopyService
}

func New(
	entitySvc *services.EntityService,
	deletionSvc *services.DeletionService,
	copySvc *services.ContentCopyService,
) *Handler {
	return &Handler{
		entitySvc:   entitySvc,
		deletionSvc: deletionSvc,
		copySvc:     copySvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Entities
	r.GET("/entities", h.ListEntities)
	r.GET("/entities/:id", h.GetEntity)
	r.POST("/entities", h.CreateEntity)
	r.PATCH("/entities/:id", h.UpdateEntity)
	r.POST("/entities/:id/freeze", h.FreezeEntity)

	// Content copies and history
	r.POST("/entities/:id/content_copies", h.AddContentCopy)
	r.DELETE("/entities/:id/content_copies/:copy_id", h.RemoveContentCopy)
	r.PATCH("/entities/:id/linked_data", h.UpdateLinkedData)
	r.GET("/entities/:id/history", h.GetHistory)

	// Deletions (trash)
	r.POST("/deletions", h.Delete)
	r.GET("/deletions", h.ListDeletions)
	r.GET("/deletions/:id", h.GetDeletion)
	r.POST("/deletions/:id/revert", h.RevertDeletion)
	r.DELETE("/deletions/:id", h.PurgeDeletion)

	// Purge manifests
	r.GET("/deletions/:id/manifest", h.GetManifest)
	r.GET("/manifests", h.ListManifests)
}

// getSession identifies the caller. Authentication happens upstream.
func getSession(c *gin.Context) (domain.Session, error) {
	userID := strings.TrimSpace(c.GetHeader(headerUserID))
	if userID == "" {
		return domain.Session{}, domain.ErrMissingUserID
	}
	return domain.Session{UserID: userID}, nil
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return services.NormalizePage(limit, offset)
}
