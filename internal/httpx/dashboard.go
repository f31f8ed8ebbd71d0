package httpx

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
	"github.com/angelcm/crm-leads-dashboard/internal/utils"
)

//go:embed templates/dashboard.html
var templatesFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"bar":     barWidth,
	"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}).ParseFS(templatesFS, "templates/dashboard.html"))

type dashboardView struct {
	Source   models.Source
	Sources  []models.Source
	Report   models.Report
	Error    string
	Query    template.URL // ya codificado; va después del "?"
	RetryURL string
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	src, ok := models.ParseSource(r.URL.Query().Get("source"))
	if !ok {
		src = models.SourceAttendances
	}
	q := r.URL.Query()
	q.Set("source", string(src))
	view := dashboardView{
		Source:   src,
		Sources:  []models.Source{models.SourceAttendances, models.SourceLeads},
		Query:    template.URL(q.Encode()),
		RetryURL: "/?" + q.Encode(),
	}

	code := http.StatusOK
	leads, err := h.f.Fetch(r.Context(), src)
	if err != nil {
		h.log.Error("dashboard fetch", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
		view.Error = err.Error()
		code = http.StatusInternalServerError
	} else {
		view.Report = h.mSvc.Build(src, leads, h.mSvc.Filter(r.URL.Query()))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := dashboardTmpl.Execute(w, view); err != nil {
		h.log.Warn("dashboard render", slog.String("err", err.Error()))
	}
}

// barWidth: ancho relativo (0-100) de cada barra frente al mayor grupo.
func barWidth(g models.Group, groups []models.Group) int {
	top := 0
	for _, x := range groups {
		top = max(top, x.Count)
	}
	if top == 0 {
		return 0
	}
	return g.Count * 100 / top
}
