package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hohparser/internal/rpc"
)

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleParseFile analyzes an uploaded file. The unit's path is the upload's
// filename.
func (s *Server) handleParseFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.handleError(c, NewAppError(http.StatusBadRequest, "Missing file upload", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.handleError(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		s.handleError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	unit, err := s.service.ParseContent(c.Request.Context(), header.Filename, content)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// handleSymbolTable analyzes a file on the server's disk.
func (s *Server) handleSymbolTable(c *gin.Context) {
	path := c.Query("filepath")
	if path == "" {
		s.handleError(c, NewAppError(http.StatusBadRequest, "Missing filepath parameter", ErrInvalidInput))
		return
	}

	unit, err := s.service.SymbolTable(c.Request.Context(), rpc.SymbolTableParams{Filepath: path})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (s *Server) handleJSONRPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.handleError(c, NewAppError(http.StatusBadRequest, "Unreadable request body", err))
		return
	}

	out := s.registry.Handle(c.Request.Context(), body)
	if out == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "application/json", out)
}

func (s *Server) handleError(c *gin.Context, err error) {
	appErr := MapError(err)
	if appErr.Code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", c.GetString(requestIDKey), "error", err)
	} else {
		s.logger.Debug("request rejected", "request_id", c.GetString(requestIDKey), "error", err)
	}
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}
