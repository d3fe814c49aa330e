// Package server exposes the dev-server manager over HTTP for the
// desktop dashboard frontend.
//
// Endpoints (basePath defaults to /api):
//
//	POST {bp}/servers/start   body: startRequest JSON
//	POST {bp}/servers/stop    query: key=<project path>
//	GET  {bp}/servers         list of statuses
//	GET  {bp}/servers/url     query: key=<project path>
//	GET  {bp}/history         query: key (optional), limit (optional)
//	GET  /healthz
//	GET  /metrics
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	mng "github.com/devhatch/devhatch/internal/manager"
	"github.com/devhatch/devhatch/internal/metrics"
)

type Router struct {
	mgr      *mng.Manager
	basePath string
}

func NewRouter(mgr *mng.Manager, basePath string) *Router {
	return &Router{mgr: mgr, basePath: sanitizeBase(basePath)}
}

// Handler returns a gin-powered http.Handler mountable in any mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/servers/start", r.handleStart)
	group.POST("/servers/stop", r.handleStop)
	group.GET("/servers", r.handleList)
	group.GET("/servers/url", r.handleURL)
	group.GET("/history", r.handleHistory)
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down with http.Server's Shutdown or Close.
func NewServer(addr, basePath string, mgr *mng.Manager) *http.Server {
	r := NewRouter(mgr, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

type errorResp struct {
	Error string `json:"error"`
}

type startRequest struct {
	Key            string `json:"key"`
	Command        string `json:"command"`
	OpenInBrowser  *bool  `json:"open_in_browser"`
	OpenInTerminal bool   `json:"open_in_terminal"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeAbsPath(req.Key) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "key must be an absolute project path without traversal"})
		return
	}
	if req.Command == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "command required"})
		return
	}
	opts := mng.Options{
		OpenInBrowser:  req.OpenInBrowser == nil || *req.OpenInBrowser,
		OpenInTerminal: req.OpenInTerminal,
	}
	res := r.mgr.StartDevServer(c.Request.Context(), req.Key, req.Command, opts)
	if !res.Success {
		writeJSON(c, http.StatusConflict, res)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleStop(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "key query param required"})
		return
	}
	res := r.mgr.StopDevServer(c.Request.Context(), key)
	if !res.Success {
		writeJSON(c, http.StatusNotFound, res)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.mgr.Statuses(c.Request.Context()))
}

type urlResp struct {
	Key     string `json:"key"`
	URL     string `json:"url,omitempty"`
	Running bool   `json:"running"`
}

func (r *Router) handleURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "key query param required"})
		return
	}
	resp := urlResp{Key: key, Running: r.mgr.IsProcessRunning(c.Request.Context(), key)}
	if u, ok := r.mgr.DetectedURL(key); ok {
		resp.URL = u
	}
	writeJSON(c, http.StatusOK, resp)
}

func (r *Router) handleHistory(c *gin.Context) {
	limit := 50
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	recs, err := r.mgr.History(c.Request.Context(), c.Query("key"), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, recs)
}
