package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/KevinKickass/OpenPointHub/internal/pointcfg"
	"github.com/KevinKickass/OpenPointHub/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/v1/modbus/controllers/:id/export?format=native|gateway
func (s *Server) exportConfig(c *gin.Context) {
	controllerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_ID", "invalid controller ID", nil))
		return
	}

	dialect, err := pointcfg.ParseDialect(c.DefaultQuery("format", string(pointcfg.DialectNative)))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_FORMAT", err.Error(), nil))
		return
	}

	doc, filename, err := s.engine.Export(c.Request.Context(), controllerID, dialect)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}

	var payload any
	if dialect == pointcfg.DialectNative {
		payload = doc.Native
	} else {
		payload = doc.Gateway
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, payload)
}

// POST /api/v1/modbus/config/validate?format=native|gateway
func (s *Server) validateConfig(c *gin.Context) {
	dialect, raw, ok := s.readConfigUpload(c)
	if !ok {
		return
	}

	result, err := s.engine.ValidateDocument(raw, dialect)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /api/v1/modbus/config/import?format=native|gateway&mode=<import mode>
func (s *Server) importConfig(c *gin.Context) {
	dialect, raw, ok := s.readConfigUpload(c)
	if !ok {
		return
	}

	mode, err := types.ParseImportMode(c.DefaultQuery("mode", string(types.ImportSkipController)))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_MODE", err.Error(), nil))
		return
	}

	report, err := s.engine.Import(c.Request.Context(), raw, dialect, mode)
	if err != nil {
		s.renderEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// readConfigUpload accepts either a multipart "file" field or a raw JSON
// body and returns the declared dialect plus the document bytes.
func (s *Server) readConfigUpload(c *gin.Context) (pointcfg.Dialect, []byte, bool) {
	dialect, err := pointcfg.ParseDialect(c.DefaultQuery("format", string(pointcfg.DialectNative)))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_FORMAT", err.Error(), nil))
		return "", nil, false
	}

	var raw []byte
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_UPLOAD", err.Error(), nil))
			return "", nil, false
		}
		defer f.Close()
		raw, err = io.ReadAll(io.LimitReader(f, s.maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_UPLOAD", err.Error(), nil))
			return "", nil, false
		}
	} else {
		raw, err = io.ReadAll(io.LimitReader(c.Request.Body, s.maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_UPLOAD", err.Error(), nil))
			return "", nil, false
		}
	}

	if !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INVALID_UPLOAD", "request body is not valid JSON", nil))
		return "", nil, false
	}

	return dialect, raw, true
}

// renderEngineError maps the engine's error taxonomy to HTTP statuses.
func (s *Server) renderEngineError(c *gin.Context, err error) {
	var formatErr *pointcfg.ConfigFormatError
	var processingErr *pointcfg.ConfigProcessingError
	var duplicateErr *pointcfg.DuplicateError

	switch {
	case errors.As(err, &formatErr):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONFIG_FORMAT_ERROR", formatErr.Error(), nil))
	case errors.As(err, &processingErr):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("CONFIG_PROCESSING_ERROR", processingErr.Error(), nil))
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, types.NewErrorResponse("DUPLICATE", duplicateErr.Error(), nil))
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse("NOT_FOUND", "controller not found", nil))
	default:
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SERVER_ERROR", err.Error(), nil))
	}
}
