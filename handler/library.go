package handler

import (
	"net/http"

	"github.com/contractlens/contractlens/middleware"
	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/pkg/logger"
	"github.com/contractlens/contractlens/view"
	"github.com/gin-gonic/gin"
)

type libraryEntries struct {
	Entries []view.LibraryEntry
	Failed  bool
}

// LibraryEntries renders the library list fragment that replaces the loading
// skeleton. The listing is remembered so selection needs no second fetch.
func (a *App) LibraryEntries(c *gin.Context) {
	sess := middleware.GetSession(c)

	contracts, err := a.library.List(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "failed to list contracts", "error", err)
		c.HTML(http.StatusOK, "library_entries", libraryEntries{Failed: true})
		return
	}
	sess.SetLibrary(contracts)

	c.HTML(http.StatusOK, "library_entries", libraryEntries{Entries: view.NewLibraryEntries(contracts)})
}

// SelectContract opens a completed library entry on the dashboard. Entries
// in any other status are ignored: nothing is fetched and the screen stays.
func (a *App) SelectContract(c *gin.Context) {
	sess := middleware.GetSession(c)
	id := c.Param("id")
	ctx := logger.WithContract(c.Request.Context(), id)

	if sess.Mode() != view.ModeLibrary {
		a.done(c, sess)
		return
	}

	entry, ok := sess.LibraryEntry(id)
	if !ok || !entry.Selectable() {
		logger.Debug(ctx, "ignoring selection", "listed", ok, "status", entry.Status)
		a.done(c, sess)
		return
	}

	analysis, err := a.library.Load(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to load analysis", "error", err)
		sess.PushToast("Error loading analysis", "There was an error loading the contract analysis.", model.ToastDestructive)
		a.done(c, sess)
		return
	}
	analysis.Normalize()

	if err := sess.LoadContract(analysis, entry); err != nil {
		c.Error(err)
	}
	a.done(c, sess)
}
