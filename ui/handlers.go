package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"excelinsights/app"
	"excelinsights/domain/core"
	"excelinsights/internal/errors"
	"excelinsights/internal/visualization"

	"github.com/gin-gonic/gin"
)

type queryRequest struct {
	Question string `json:"question" validate:"required"`
}

type missingRequest struct {
	Strategy string `json:"strategy" validate:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"language_model": s.service.HasModel(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+multipartOverhead)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(c, errors.TooLarge(int(s.maxUpload>>20)))
			return
		}
		s.writeError(c, errors.InvalidInput("multipart form field 'file' is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(c, errors.InvalidInput("failed to read uploaded file"))
		return
	}

	result, err := s.service.Upload(c.Request.Context(), header.Filename, content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) sessionID(c *gin.Context) (core.SessionID, bool) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

// bind decodes and validates a JSON body.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err)))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(c, errors.ValidationError(err.Error()))
		return false
	}
	return true
}

// respond writes v, or the error when err is set.
func (s *Server) respond(c *gin.Context, v interface{}, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleOverview(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Overview(c.Request.Context(), id)
	s.respond(c, out, err)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	if err := s.service.Close(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.DetailedAnalysis(c.Request.Context(), id)
	s.respond(c, gin.H{"statistics": out}, err)
}

func (s *Server) handleCorrelations(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Correlations(c.Request.Context(), id)
	s.respond(c, out, err)
}

func (s *Server) handleClean(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Clean(c.Request.Context(), id)
	s.respond(c, out, err)
}

func (s *Server) handleMissing(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req missingRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.service.HandleMissing(c.Request.Context(), id, req.Strategy)
	s.respond(c, out, err)
}

func (s *Server) handleChart(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req visualization.ChartRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.service.Chart(c.Request.Context(), id, req)
	s.respond(c, out, err)
}

func (s *Server) handleAnalysis(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	name := c.Param("analysis")
	if name == "recommended" {
		out, err := s.service.Dashboard(c.Request.Context(), id, name)
		s.respond(c, out, err)
		return
	}
	out, err := s.service.Analysis(c.Request.Context(), id, name, app.AnalysisParams{
		Column: c.Query("column"),
		Date:   c.Query("date"),
		Value:  c.Query("value"),
	})
	s.respond(c, out, err)
}

func (s *Server) handleDashboard(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Dashboard(c.Request.Context(), id, c.Param("name"))
	s.respond(c, out, err)
}

func (s *Server) handleQuery(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	var req queryRequest
	if !s.bind(c, &req) {
		return
	}
	out, err := s.service.Ask(c.Request.Context(), id, req.Question)
	s.respond(c, out, err)
}

func (s *Server) handleInsights(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Insights(c.Request.Context(), id)
	s.respond(c, out, err)
}

func (s *Server) handleColumnAnalysis(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.ColumnAnalysis(c.Request.Context(), id, c.Param("column"))
	s.respond(c, out, err)
}

func (s *Server) handleExport(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	out, err := s.service.Export(c.Request.Context(), id, c.DefaultQuery("format", "xlsx"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	records, err := s.service.History(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": records, "count": len(records)})
}

func (s *Server) handleRecord(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	rec, err := s.service.Record(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
