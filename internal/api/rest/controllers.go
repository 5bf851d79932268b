package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/v1/modbus/controllers
func (s *Server) listControllers(c *gin.Context) {
	controllers, err := s.storage.ListControllers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SERVER_ERROR", err.Error(), nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"controllers": controllers,
		"count":       len(controllers),
	})
}

// GET /api/v1/modbus/controllers/:id
func (s *Server) getController(c *gin.Context) {
	controllerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_ID", "invalid controller ID", nil))
		return
	}

	cat := s.storage.Catalog()

	ctrl, err := cat.ControllerByID(c.Request.Context(), controllerID)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}

	points, err := cat.PointsByController(c.Request.Context(), ctrl.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SERVER_ERROR", err.Error(), nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"controller": ctrl,
		"points":     points,
		"count":      len(points),
	})
}
