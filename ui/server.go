// Package ui exposes the harness over HTTP: trigger runs, inspect drift
// diagnostics and the scheduler, browse run history, and download exports.
package ui

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"viewsync/internal"
	"viewsync/internal/container"
	errs "viewsync/internal/errors"
)

// Server wraps the gin router around a wired container.
type Server struct {
	router *gin.Engine
	app    *container.Container
	log    *internal.Logger
}

// NewServer builds the router. The container must be fully initialized.
func NewServer(app *container.Container) *Server {
	s := &Server{
		router: gin.Default(),
		app:    app,
		log:    app.Log,
	}
	s.routes()
	return s
}

// Handler exposes the router for http.Server integration.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", s.handleHealth)

	debug := r.Group("/debug")
	{
		debug.GET("/scheduler", s.handleSchedulerState)
		debug.POST("/scheduler/flush", s.handleSchedulerFlush)
		debug.GET("/drift", s.handleDriftReport)
		debug.POST("/drift/start", s.handleDriftStart)
		debug.POST("/drift/stop", s.handleDriftStop)
		debug.POST("/drift/reset", s.handleDriftReset)
	}

	tests := r.Group("/tests")
	{
		tests.GET("", s.handleListHypotheses)
		tests.POST("/run", s.handleRunAll)
		tests.POST("/run/:id", s.handleRunSingle)
		tests.POST("/ablation", s.handleAblation)
		tests.POST("/baseline", s.handleSaveBaseline)
	}

	runs := r.Group("/runs")
	{
		runs.GET("", s.handleAllRuns)
		runs.GET("/last", s.handleLastRun)
		runs.GET("/trend", s.handleTrend)
		runs.GET("/history/:id", s.handleTestHistory)
		runs.GET("/compare", s.handleCompare)
		runs.GET("/:id", s.handleRunByID)
		runs.POST("/clear", s.handleClearHistory)
	}

	export := r.Group("/export")
	{
		export.GET("/json", s.handleExportJSON)
		export.GET("/csv", s.handleExportCSV)
		export.GET("/xlsx", s.handleExportXLSX)
		export.GET("/html", s.handleExportHTML)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"hypotheses": s.app.Registry.Len(),
	})
}

func (s *Server) handleSchedulerState(c *gin.Context) {
	pending, sources := s.app.Scheduler.PendingSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"pending":    pending,
		"sources":    sources,
		"flushCount": s.app.Scheduler.FlushCount(),
	})
}

func (s *Server) handleSchedulerFlush(c *gin.Context) {
	s.app.Scheduler.FlushNow()
	c.JSON(http.StatusOK, gin.H{"flushed": true, "flushCount": s.app.Scheduler.FlushCount()})
}

func (s *Server) handleDriftReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Monitor.DriftReport())
}

func (s *Server) handleDriftStart(c *gin.Context) {
	s.app.Monitor.StartDiagnostics()
	c.JSON(http.StatusOK, gin.H{"sampling": true})
}

func (s *Server) handleDriftStop(c *gin.Context) {
	s.app.Monitor.StopDiagnostics()
	c.JSON(http.StatusOK, gin.H{"sampling": false})
}

func (s *Server) handleDriftReset(c *gin.Context) {
	s.app.Monitor.ResetDiagnostics()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) handleListHypotheses(c *gin.Context) {
	type item struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Category  string `json:"category"`
		Statement string `json:"statement"`
		Advisory  bool   `json:"advisory,omitempty"`
	}
	var out []item
	for _, h := range s.app.Registry.GetAll() {
		out = append(out, item{
			ID:        h.ID,
			Name:      h.Name,
			Category:  string(h.Category),
			Statement: h.Statement,
			Advisory:  h.Advisory,
		})
	}
	c.JSON(http.StatusOK, gin.H{"hypotheses": out, "count": len(out)})
}

func (s *Server) handleRunAll(c *gin.Context) {
	run, err := s.app.Runner.RunAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":         run,
		"regressions": s.app.Store.DetectRegressions(),
	})
}

func (s *Server) handleRunSingle(c *gin.Context) {
	res, err := s.app.Runner.RunSingle(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAblation(c *gin.Context) {
	result, err := s.app.Runner.RunAblationStudy(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSaveBaseline(c *gin.Context) {
	baseline, err := s.app.Runner.SaveBaseline()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, baseline)
}

func (s *Server) handleAllRuns(c *gin.Context) {
	runs := s.app.Store.AllRuns()
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) handleLastRun(c *gin.Context) {
	run := s.app.Store.LastRun()
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no finished runs"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunByID(c *gin.Context) {
	run, ok := s.app.Store.RunByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleTrend(c *gin.Context) {
	n := queryInt(c, "n", 0)
	c.JSON(http.StatusOK, gin.H{
		"points": s.app.Store.PassRateTrend(n),
		"slope":  s.app.Store.TrendSlope(n),
	})
}

func (s *Server) handleTestHistory(c *gin.Context) {
	id := c.Param("id")
	points := s.app.Store.TestHistory(id, queryInt(c, "n", 0))
	c.JSON(http.StatusOK, gin.H{"hypothesisId": id, "points": points})
}

func (s *Server) handleCompare(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query params a and b are required"})
		return
	}
	cmp, ok := s.app.Store.CompareRuns(a, b)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "one or both runs not found"})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (s *Server) handleClearHistory(c *gin.Context) {
	s.app.Store.ClearHistory(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleExportJSON(c *gin.Context) {
	data, name, err := s.app.Store.ExportJSON()
	s.download(c, data, name, "application/json", err)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	data, name, err := s.app.Store.ExportCSV()
	s.download(c, data, name, "text/csv", err)
}

func (s *Server) handleExportXLSX(c *gin.Context) {
	data, name, err := s.app.Store.ExportXLSX()
	s.download(c, data, name,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err)
}

func (s *Server) handleExportHTML(c *gin.Context) {
	data, name, err := s.app.Store.ExportHTML(s.app.Registry)
	s.download(c, data, name, "text/html; charset=utf-8", err)
}

func (s *Server) download(c *gin.Context, data []byte, name, contentType string, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

// fail maps application error codes onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.GetCode(err) {
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeRunInProgress:
		status = http.StatusConflict
	case errs.CodePreconditionNotMet:
		status = http.StatusPreconditionFailed
	case errs.CodeInvalidInput, errs.CodeConfigInvalid:
		status = http.StatusBadRequest
	}
	s.log.Warn("request failed: %v", err)
	c.JSON(status, gin.H{"error": err.Error(), "code": errs.GetCode(err)})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
