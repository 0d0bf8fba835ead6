package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/middleware"
	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/service"
	"github.com/contractlens/contractlens/view"
	"github.com/gin-gonic/gin"
)

// Uploader forwards an accepted document to the analysis service
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*model.ContractSummary, error)
}

// Pinger reports whether the analysis service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// App serves the screens. Per-browser state lives in the session attached
// by middleware.Session.
type App struct {
	cfg      *config.Config
	uploader Uploader
	analyzer *service.Analyzer
	library  service.Library
	exporter service.Exporter
	pinger   Pinger
	exports  sync.WaitGroup // simulated exports in flight
}

// Deps are the collaborators App needs
type Deps struct {
	Config   *config.Config
	Uploader Uploader
	Analyzer *service.Analyzer
	Library  service.Library
	Exporter service.Exporter
	Pinger   Pinger
}

func NewApp(deps Deps) *App {
	return &App{
		cfg:      deps.Config,
		uploader: deps.Uploader,
		analyzer: deps.Analyzer,
		library:  deps.Library,
		exporter: deps.Exporter,
		pinger:   deps.Pinger,
	}
}

// Wait blocks until background work started by requests has finished
func (a *App) Wait() {
	a.analyzer.Wait()
	a.exports.Wait()
}

// Routes registers every screen and action on r
func (a *App) Routes(r gin.IRoutes) {
	r.GET("/", a.Index)
	r.POST("/nav/:target", a.Nav)
	r.POST("/back", a.Back)

	r.POST("/upload", a.Upload)
	r.GET("/analysis/progress", a.Progress)

	r.GET("/library/entries", a.LibraryEntries)
	r.POST("/library/:id/select", a.SelectContract)

	r.POST("/dashboard/export", a.Export)
	r.GET("/dashboard/report", a.Report)

	r.GET("/api/state", a.State)
}

// wantsJSON is true for scripted clients; browsers posting forms get redirects
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// done finishes an action: back to the active screen for browsers, the
// session snapshot for scripted clients.
func (a *App) done(c *gin.Context, sess *service.Session) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, sess.Snapshot())
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Index renders the active screen and drains pending toasts
func (a *App) Index(c *gin.Context) {
	sess := middleware.GetSession(c)
	c.HTML(http.StatusOK, "page", a.page(sess))
}

// Nav handles the header and hero navigation buttons
func (a *App) Nav(c *gin.Context) {
	sess := middleware.GetSession(c)
	target := c.Param("target")

	event, ok := view.NavEvent(target)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown screen: " + target})
		return
	}
	if err := sess.Send(event); err != nil {
		// Navigation that the current screen does not offer leaves it unchanged
		c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "view": sess.Mode()})
			return
		}
	}
	a.done(c, sess)
}

// Back returns to the home screen from anywhere that offers it
func (a *App) Back(c *gin.Context) {
	sess := middleware.GetSession(c)
	if err := sess.Send(view.EventGoHome); err != nil {
		c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "view": sess.Mode()})
			return
		}
	}
	a.done(c, sess)
}

// State returns the session snapshot without draining toasts
func (a *App) State(c *gin.Context) {
	sess := middleware.GetSession(c)
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Health reports liveness and, when a pinger is set, whether the analysis
// service answers.
func (a *App) Health(c *gin.Context) {
	resp := gin.H{"status": "ok", "analysis_api": a.cfg.Analysis.BaseURL}
	if a.pinger != nil {
		if err := a.pinger.Ping(c.Request.Context()); err != nil {
			resp["analysis_api_status"] = "unreachable"
			resp["analysis_api_error"] = err.Error()
		} else {
			resp["analysis_api_status"] = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}
