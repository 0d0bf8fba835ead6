package handler

import (
	"embed"
	"html/template"
	"math"
	"strings"

	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/service"
	"github.com/contractlens/contractlens/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the screen templates. Call once at startup and hand the
// result to gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

var templateFuncs = template.FuncMap{
	"score":   view.FormatScore,
	"percent": func(v float64) int { return int(math.Round(v)) },
	"upper":   strings.ToUpper,
	"add":     func(a, b int) int { return a + b },
	"lower":   func(l model.RiskLevel) string { return strings.ToLower(string(l)) },
}

// Page is the data behind one render of the active screen
type Page struct {
	View        view.Mode
	Toasts      []model.Toast
	MaxUploadMB int
	Accept      string

	// analyzing
	FileName string
	Phases   []string
	Progress service.Progress

	// dashboard
	Dashboard    *view.Dashboard
	Downloadable bool
	Exporting    bool

	// library
	LibrarySource string
}

func (a *App) page(sess *service.Session) Page {
	snap := sess.Snapshot()
	p := Page{
		View:          snap.View,
		Toasts:        sess.DrainToasts(),
		MaxUploadMB:   a.cfg.Upload.MaxSizeMB,
		Accept:        service.MIMEPDF + "," + service.MIMEDOCX + ",.pdf,.docx",
		FileName:      snap.FileName,
		Phases:        service.Phases,
		Progress:      snap.Progress,
		Downloadable:  a.exporter.Downloadable(),
		Exporting:     snap.Exporting,
		LibrarySource: a.cfg.Library.Source,
	}
	if snap.View == view.ModeDashboard && snap.Analysis != nil {
		p.Dashboard = view.NewDashboard(snap.Analysis, model.ContractSummary{
			Filename:     displayName(snap.FileName),
			DocumentType: snap.DocumentType,
			UploadDate:   snap.UploadDate,
		})
	}
	return p
}

func displayName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
