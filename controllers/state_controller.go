package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"venue-backend/logger"
	"venue-backend/models"
	"venue-backend/services"
	"venue-backend/utils"
)

type StateController struct {
	DocSvc *services.DocumentService
}

func NewStateController(svc *services.DocumentService) *StateController {
	return &StateController{DocSvc: svc}
}

type writeStateRequest struct {
	Document *models.Document `json:"document"`
}

// ETag renders a document revision as a strong entity tag.
func ETag(revision int64) string {
	return fmt.Sprintf(`"rev-%d"`, revision)
}

func etagMatches(header string, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// ----------------------------------------------------
// GET /api/state
// ----------------------------------------------------

func (sc *StateController) GetState(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	if inm := c.GetHeader("If-None-Match"); inm != "" {
		rev, err := sc.DocSvc.Revision(ctx)
		switch {
		case errors.Is(err, services.ErrDocumentNotFound):
			utils.JSONError(c, http.StatusNotFound, services.ErrDocumentNotFound.Error())
			return
		case err != nil:
			log.Error("read document revision failed", zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "failed to read document")
			return
		case etagMatches(inm, ETag(rev)):
			utils.NotModified(c, ETag(rev))
			return
		}
	}

	snap, err := sc.DocSvc.Load(ctx)
	if errors.Is(err, services.ErrDocumentNotFound) {
		utils.JSONError(c, http.StatusNotFound, services.ErrDocumentNotFound.Error())
		return
	}
	if err != nil {
		log.Error("load document failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to read document")
		return
	}

	c.Header("ETag", ETag(snap.Revision))
	c.JSON(http.StatusOK, snap)
}

// ----------------------------------------------------
// PUT /api/state
// ----------------------------------------------------

func (sc *StateController) PutState(c *gin.Context) {
	var req writeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if req.Document == nil {
		utils.JSONError(c, http.StatusBadRequest, "document is required")
		return
	}

	result, err := sc.DocSvc.Save(c.Request.Context(), *req.Document)
	if errors.Is(err, services.ErrInvalidDocument) {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("write document failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to save document")
		return
	}

	c.Header("ETag", ETag(result.Revision))
	utils.JSONSuccess(c, http.StatusOK, result)
}
