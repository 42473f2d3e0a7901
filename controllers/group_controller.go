package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"venue-backend/models"
	"venue-backend/services"
	"venue-backend/utils"
)

// GroupController answers group level questions from the stored document.
type GroupController struct {
	DocSvc *services.DocumentService
}

func NewGroupController(svc *services.DocumentService) *GroupController {
	return &GroupController{DocSvc: svc}
}

func (gc *GroupController) groupEvents(c *gin.Context) ([]models.Event, string, bool) {
	key := strings.TrimSpace(c.Param("groupId"))
	snap, err := gc.DocSvc.Load(c.Request.Context())
	if errors.Is(err, services.ErrDocumentNotFound) {
		utils.JSONError(c, http.StatusNotFound, err.Error())
		return nil, key, false
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read document")
		return nil, key, false
	}
	return snap.Document.EventsInGroup(key), key, true
}

// LatestQuote handles GET /api/groups/:groupId/quote/latest.
func (gc *GroupController) LatestQuote(c *gin.Context) {
	events, key, ok := gc.groupEvents(c)
	if !ok {
		return
	}
	snap, eventID, found := models.LatestQuoteInGroup(events, key)
	if !found {
		utils.JSONError(c, http.StatusNotFound, "no quote versions in group")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"groupId": key, "eventId": eventID, "snapshot": snap})
}

// LatestMenuMontaje handles GET /api/groups/:groupId/menu-montaje/latest.
func (gc *GroupController) LatestMenuMontaje(c *gin.Context) {
	events, key, ok := gc.groupEvents(c)
	if !ok {
		return
	}
	snap, eventID, found := models.LatestMenuMontajeInGroup(events, key)
	if !found {
		utils.JSONError(c, http.StatusNotFound, "no menu/montaje versions in group")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"groupId": key, "eventId": eventID, "snapshot": snap})
}
