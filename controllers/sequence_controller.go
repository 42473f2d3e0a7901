package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"venue-backend/logger"
	"venue-backend/services"
	"venue-backend/utils"
)

type SequenceController struct {
	SeqSvc *services.SequenceService
}

func NewSequenceController(svc *services.SequenceService) *SequenceController {
	return &SequenceController{SeqSvc: svc}
}

// ReserveNext handles POST /api/sequences/:scope/reserve.
func (sc *SequenceController) ReserveNext(c *gin.Context) {
	code, err := sc.SeqSvc.ReserveNext(c.Request.Context(), c.Param("scope"))
	if errors.Is(err, services.ErrInvalidScope) {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("reserve document number failed",
			zap.String("scope", c.Param("scope")), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to reserve document number")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"code": code})
}

// Current handles GET /api/sequences/:scope.
func (sc *SequenceController) Current(c *gin.Context) {
	scope, err := services.NormalizeScope(c.Param("scope"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	n, err := sc.SeqSvc.Current(c.Request.Context(), scope)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to read sequence")
		return
	}
	data := gin.H{"scope": scope, "lastValue": n}
	if n > 0 {
		data["lastCode"] = services.FormatCode(scope, n)
	}
	utils.JSONSuccess(c, http.StatusOK, data)
}
