package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angelcm/crm-leads-dashboard/internal/export"
	"github.com/angelcm/crm-leads-dashboard/internal/ingest"
	"github.com/angelcm/crm-leads-dashboard/internal/metrics"
	"github.com/angelcm/crm-leads-dashboard/internal/models"
	"github.com/angelcm/crm-leads-dashboard/internal/utils"
)

type LeadFetcher interface {
	Fetch(ctx context.Context, src models.Source) ([]models.Lead, error)
}

type Options struct {
	WhatsAppPhone string
	// Ready se consulta en /readyz; nil = siempre listo.
	Ready func(ctx context.Context) error
}

type handlers struct {
	log  *slog.Logger
	f    LeadFetcher
	mSvc *metrics.Service
	opts Options
}

func NewRouter(log *slog.Logger, f LeadFetcher, mSvc *metrics.Service, opts Options) http.Handler {
	h := &handlers{log: log, f: f, mSvc: mSvc, opts: opts}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Metrics)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", h.readyz)
	mux.Handle("/metrics", utils.MetricsHandler())

	mux.Get("/", h.dashboard)
	mux.Route("/api", func(r chi.Router) {
		r.Get("/atendimentos", h.leads(models.SourceAttendances))
		r.Get("/leads", h.leads(models.SourceLeads))
		r.Get("/report", h.report)
		r.Get("/export.csv", h.exportCSV)
		r.Get("/export/whatsapp", h.exportWhatsApp)
	})

	return mux
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

// leads es el proxy: siempre 200 con lo que se pudo traer, salvo sin API key.
func (h *handlers) leads(src models.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leads, err := h.f.Fetch(r.Context(), src)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"leads": leads})
	}
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, rep)
}

func (h *handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	f := h.mSvc.Filter(r.URL.Query())
	// sin limit explícito el CSV lleva todo lo filtrado
	f.All = r.URL.Query().Get("limit") == ""
	rep, ok := h.buildWith(w, r, f)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leads-`+string(rep.Source)+`.csv"`)
	if err := export.WriteCSV(w, rep.Rows); err != nil {
		h.log.Warn("csv write", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
	}
}

func (h *handlers) exportWhatsApp(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		phone = h.opts.WhatsAppPhone
	}
	text := export.WhatsAppText(rep)
	link := export.WhatsAppURL(phone, text)
	if redirect, _ := strconv.ParseBool(r.URL.Query().Get("redirect")); redirect {
		http.Redirect(w, r, link, http.StatusFound)
		return
	}
	writeJSON(w, map[string]string{"text": text, "url": link})
}

// build resuelve source + filtros y arma el reporte; escribe el error si falla.
func (h *handlers) build(w http.ResponseWriter, r *http.Request) (models.Report, bool) {
	return h.buildWith(w, r, h.mSvc.Filter(r.URL.Query()))
}

func (h *handlers) buildWith(w http.ResponseWriter, r *http.Request, f metrics.Filter) (models.Report, bool) {
	src, ok := models.ParseSource(r.URL.Query().Get("source"))
	if !ok {
		writeError(w, http.StatusBadRequest, "source must be atendimentos or leads")
		return models.Report{}, false
	}
	leads, err := h.f.Fetch(r.Context(), src)
	if err != nil {
		h.fail(w, r, err)
		return models.Report{}, false
	}
	return h.mSvc.Build(src, leads, f), true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg := "failed to fetch leads"
	if errors.Is(err, ingest.ErrMissingAPIKey) {
		msg = err.Error()
	}
	h.log.Error("fetch leads", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
	writeError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
