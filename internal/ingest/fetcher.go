package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelcm/crm-leads-dashboard/internal/config"
	"github.com/angelcm/crm-leads-dashboard/internal/models"
	"github.com/angelcm/crm-leads-dashboard/internal/store"
	"github.com/angelcm/crm-leads-dashboard/internal/utils"
)

var ErrMissingAPIKey = errors.New("CRM_API_KEY not configured")

// Fetcher consulta el CRM una vez por finalidad y en paralelo.
type Fetcher struct {
	c       HTTPClient
	cfg     config.Config
	norm    *Normalizer
	cache   store.Cache
	log     *slog.Logger
	backoff utils.Backoff
}

func NewFetcher(c HTTPClient, cfg config.Config, norm *Normalizer, cache store.Cache, log *slog.Logger) *Fetcher {
	if norm == nil {
		norm = NewNormalizer(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		c:       c,
		cfg:     cfg,
		norm:    norm,
		cache:   cache,
		log:     log,
		backoff: utils.NewBackoff(200*time.Millisecond, cfg.Retries),
	}
}

// Fetch devuelve los leads de la fuente, ordenados por data_entrada desc.
// Un fallo en una finalidad se registra y cuenta como lista vacía.
func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Lead, error) {
	if f.cfg.CRMAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	purposes := f.cfg.Purposes
	if len(purposes) == 0 {
		purposes = []int{1, 2}
	}

	results := make([][]models.Lead, len(purposes))
	var g errgroup.Group
	for i, p := range purposes {
		i, p := i, p
		g.Go(func() error {
			results[i] = f.fetchPurpose(ctx, src, p)
			return nil
		})
	}
	_ = g.Wait()

	var out []models.Lead
	for _, r := range results {
		out = append(out, r...)
	}
	if out == nil {
		out = []models.Lead{}
	}
	SortByEntryDesc(out, f.cfg.Location)
	return out, nil
}

func (f *Fetcher) fetchPurpose(ctx context.Context, src models.Source, purpose int) []models.Lead {
	key := cacheKey(src, purpose, f.cfg.StatusFilter)
	if f.cache != nil {
		if leads, ok := f.cache.Get(ctx, key); ok {
			utils.ObserveFetch(string(src), purpose, "cache")
			return leads
		}
	}

	u := f.endpoint(src, purpose)
	var payload any
	err := f.backoff.Do(ctx, func(i int) error {
		var err error
		payload, err = getPayload(ctx, f.c, u, f.cfg.CRMAPIKey)
		if err != nil && i < f.cfg.Retries {
			f.log.Debug("crm retry", slog.String("source", string(src)), slog.Int("attempt", i+1), slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil {
		utils.ObserveFetch(string(src), purpose, "error")
		f.log.Warn("crm fetch failed",
			slog.String("source", string(src)),
			slog.Int("finalidade", purpose),
			slog.String("rid", utils.RID(ctx)),
			slog.String("err", err.Error()))
		return []models.Lead{}
	}

	leads := f.norm.NormalizeRecords(src, ExtractList(payload))
	utils.ObserveFetch(string(src), purpose, "ok")
	utils.ObserveNormalized(string(src), len(leads))
	if f.cache != nil {
		f.cache.Set(ctx, key, leads)
	}
	return leads
}

func (f *Fetcher) endpoint(src models.Source, purpose int) string {
	path := f.cfg.AttendancePath
	if src == models.SourceLeads {
		path = f.cfg.LeadsPath
	}
	if f.cfg.CRMBaseURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("numeroPagina", "1")
	q.Set("numeroRegistros", strconv.Itoa(max(f.cfg.PageSize, 1)))
	q.Set("finalidade", strconv.Itoa(purpose))
	if f.cfg.StatusFilter != "" {
		q.Set("situacao", f.cfg.StatusFilter)
	}
	return f.cfg.CRMBaseURL + path + "?" + q.Encode()
}

func cacheKey(src models.Source, purpose int, status string) string {
	return string(src) + "|" + strconv.Itoa(purpose) + "|" + status
}

// SortByEntryDesc ordena por data_entrada, más reciente primero (estable).
func SortByEntryDesc(leads []models.Lead, loc *time.Location) {
	ts := make(map[int]time.Time, len(leads))
	idx := make([]int, len(leads))
	for i := range leads {
		idx[i] = i
		t, _ := ParseLeadTime(leads[i].DataEntrada, loc)
		ts[i] = t
	}
	sort.SliceStable(idx, func(a, b int) bool { return ts[idx[a]].After(ts[idx[b]]) })
	sorted := make([]models.Lead, len(leads))
	for i, j := range idx {
		sorted[i] = leads[j]
	}
	copy(leads, sorted)
}
