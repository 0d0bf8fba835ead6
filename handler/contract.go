package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/contractlens/contractlens/middleware"
	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/pkg/logger"
	"github.com/contractlens/contractlens/service"
	"github.com/contractlens/contractlens/view"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file itself
const multipartOverhead = 1 << 20

// Upload validates the posted document, forwards it to the analysis service
// and starts the analysis. Rejected documents never leave this process.
func (a *App) Upload(c *gin.Context) {
	sess := middleware.GetSession(c)
	log := logger.WithContext(c.Request.Context())

	if sess.Mode() != view.ModeUpload {
		c.Error(fmt.Errorf("upload posted on the %s screen", sess.Mode()))
		a.done(c, sess)
		return
	}

	if sess.Progress().Running {
		log.Warn("upload rejected", "reason", "analysis running")
		sess.PushToast("Upload failed", "An analysis is still running. Please wait for it to finish.", model.ToastDestructive)
		a.done(c, sess)
		return
	}

	maxBytes := a.cfg.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("upload rejected", "reason", "request too large", "limit", maxBytes)
			sess.PushToast("File too large", fmt.Sprintf("Please upload a file smaller than %dMB.", a.cfg.Upload.MaxSizeMB), model.ToastDestructive)
		} else {
			log.Warn("upload rejected", "reason", "no file", "error", err)
			sess.PushToast("Invalid file type", "Please upload a PDF or DOCX file.", model.ToastDestructive)
		}
		a.done(c, sess)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	doc, err := service.ValidateDocument(filename, header.Header.Get("Content-Type"), header.Size, maxBytes, file)
	if err != nil {
		log.Warn("upload rejected", "filename", filename, "size", header.Size, "error", err)
		if errors.Is(err, service.ErrDocumentTooLarge) {
			sess.PushToast("File too large", fmt.Sprintf("Please upload a file smaller than %dMB.", a.cfg.Upload.MaxSizeMB), model.ToastDestructive)
		} else {
			sess.PushToast("Invalid file type", "Please upload a PDF or DOCX file.", model.ToastDestructive)
		}
		a.done(c, sess)
		return
	}

	sess.PushToast("File uploaded successfully", doc.Filename+" is ready for analysis.", model.ToastDefault)

	summary, err := a.uploader.Upload(c.Request.Context(), doc.Filename, doc.ContentType, file)
	if err != nil {
		log.Error("upload failed", "filename", doc.Filename, "error", err)
		sess.PushToast("Upload failed", "There was an error uploading your contract. Please try again.", model.ToastDestructive)
		a.done(c, sess)
		return
	}

	uploaded := *summary
	uploaded.Filename = doc.Filename
	if uploaded.DocumentType == "" {
		uploaded.DocumentType = documentType(doc.ContentType)
	}
	if err := sess.Uploaded(uploaded); err != nil {
		log.Warn("upload could not start analysis", "contract_id", summary.ID, "error", err)
		c.Error(err)
		sess.PushToast("Upload failed", "There was an error uploading your contract. Please try again.", model.ToastDestructive)
		a.done(c, sess)
		return
	}
	log.Info("contract uploaded",
		"contract_id", summary.ID,
		"filename", doc.Filename,
		"content_type", doc.ContentType,
		"size", doc.Size,
	)

	if err := a.analyzer.Start(sess); err != nil {
		log.Warn("analysis not started", "contract_id", summary.ID, "error", err)
	}

	a.done(c, sess)
}

func documentType(contentType string) string {
	switch contentType {
	case service.MIMEPDF:
		return "PDF"
	case service.MIMEDOCX:
		return "DOCX"
	default:
		return ""
	}
}

// Progress reports the simulated analysis progress for polling
func (a *App) Progress(c *gin.Context) {
	sess := middleware.GetSession(c)
	snap := sess.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"view":     snap.View,
		"step":     snap.Progress.Step,
		"phase":    snap.Progress.Phase,
		"percent":  snap.Progress.Percent,
		"running":  snap.Progress.Running,
		"finished": snap.Progress.Finished,
		"failed":   snap.Progress.Failed,
		"phases":   service.Phases,
	})
}
