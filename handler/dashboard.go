package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/contractlens/contractlens/middleware"
	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/pkg/logger"
	"github.com/contractlens/contractlens/view"
	"github.com/gin-gonic/gin"
)

// Export starts the report export for the analysis on the dashboard. In
// simulated mode it acknowledges after a fixed delay; otherwise the browser
// is sent on to the download.
func (a *App) Export(c *gin.Context) {
	sess := middleware.GetSession(c)
	analysis := sess.Analysis()
	if sess.Mode() != view.ModeDashboard || analysis == nil {
		a.done(c, sess)
		return
	}

	if a.exporter.Downloadable() {
		c.Redirect(http.StatusSeeOther, "/dashboard/report")
		return
	}

	if !sess.SetExporting(true) {
		a.done(c, sess)
		return
	}

	ctx := context.WithoutCancel(logger.WithContract(c.Request.Context(), analysis.ContractID))
	a.exports.Add(1)
	go func() {
		defer a.exports.Done()
		defer sess.SetExporting(false)

		if _, err := a.exporter.Export(ctx, analysis.ContractID); err != nil {
			logger.Error(ctx, "export failed", "error", err)
			sess.PushToast("Export failed", "The analysis report could not be exported.", model.ToastDestructive)
			return
		}
		logger.Info(ctx, "export completed")
		sess.PushToast("Export completed", "Contract analysis report has been downloaded.", model.ToastDefault)
	}()

	a.done(c, sess)
}

// Report downloads the analysis report for the contract on the dashboard
func (a *App) Report(c *gin.Context) {
	sess := middleware.GetSession(c)
	analysis := sess.Analysis()
	if sess.Mode() != view.ModeDashboard || analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis is open"})
		return
	}
	if !a.exporter.Downloadable() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report download is not enabled"})
		return
	}

	ctx := logger.WithContract(c.Request.Context(), analysis.ContractID)
	export, err := a.exporter.Export(ctx, analysis.ContractID)
	if err != nil {
		logger.Error(ctx, "report download failed", "error", err)
		sess.PushToast("Export failed", "The analysis report could not be downloaded.", model.ToastDestructive)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if export.URL != "" {
		c.Redirect(http.StatusFound, export.URL)
		return
	}

	report := export.Report
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
