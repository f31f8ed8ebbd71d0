package metrics

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/angelcm/crm-leads-dashboard/internal/ingest"
	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

const (
	DefaultSLAMinutes = 120
	TopLateSize       = 5
)

type Service struct {
	slaMinutes int
	loc        *time.Location
	now        func() time.Time
}

func NewService(slaMinutes int, loc *time.Location, now func() time.Time) *Service {
	if slaMinutes <= 0 {
		slaMinutes = DefaultSLAMinutes
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Service{slaMinutes: slaMinutes, loc: loc, now: now}
}

func (s *Service) SLAMinutes() int { return s.slaMinutes }

// Filter parsea filtros en la zona horaria del servicio.
func (s *Service) Filter(v url.Values) Filter { return ParseFilter(v, s.loc) }

// Fold pasa a minúsculas y quita acentos: "Em Atendimento" == "em atendimento".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

func IsAgendamento(status string) bool { return strings.Contains(Fold(status), "visita") }

func IsEmAtendimento(status string) bool {
	switch Fold(status) {
	case "em atendimento", "contato feito":
		return true
	}
	return false
}

// Evaluate calcula la espera: (primeira_interacao o ahora) - data_entrada, en minutos.
func (s *Service) Evaluate(l models.Lead) models.LeadSLA {
	row := models.LeadSLA{Lead: l}
	end, responded := ingest.ParseLeadTime(l.PrimeiraInteracao, s.loc)
	if !responded {
		end = s.now()
	}
	row.Pending = !responded
	if entry, ok := ingest.ParseLeadTime(l.DataEntrada, s.loc); ok {
		row.WaitMinutes = max(int(end.Sub(entry)/time.Minute), 0)
	}
	row.Late = row.WaitMinutes >= s.slaMinutes
	return row
}

func (s *Service) EvaluateAll(leads []models.Lead) []models.LeadSLA {
	out := make([]models.LeadSLA, 0, len(leads))
	for _, l := range leads {
		out = append(out, s.Evaluate(l))
	}
	return out
}

func (s *Service) KPIs(rows []models.LeadSLA) models.KPIs {
	k := models.KPIs{Total: len(rows)}
	for _, r := range rows {
		if IsAgendamento(r.Status) {
			k.Agendamentos++
		}
		if IsEmAtendimento(r.Status) {
			k.EmAtendimento++
		}
		if r.Pending {
			k.Pendentes++
		}
	}
	k.Conversion = round3(safeDiv(float64(k.Agendamentos), float64(k.Total)))
	return k
}

func (s *Service) SLA(rows []models.LeadSLA) models.SLASummary {
	sum := models.SLASummary{ThresholdMinutes: s.slaMinutes}
	var waits []int
	onTime := 0
	for _, r := range rows {
		if r.Late {
			sum.Late++
		}
		if r.Pending {
			continue
		}
		waits = append(waits, r.WaitMinutes)
		if !r.Late {
			onTime++
		}
	}
	sum.Responded = len(waits)
	if len(waits) == 0 {
		return sum
	}
	total := 0
	for _, w := range waits {
		total += w
	}
	sort.Ints(waits)
	sum.OnTimeRate = round3(safeDiv(float64(onTime), float64(len(waits))))
	sum.AvgResponseMin = round2(float64(total) / float64(len(waits)))
	sum.MedianResponse = median(waits)
	return sum
}

// Build arma el reporte completo sobre los leads que pasan el filtro.
func (s *Service) Build(src models.Source, leads []models.Lead, f Filter) models.Report {
	rows := make([]models.LeadSLA, 0, len(leads))
	for _, r := range s.EvaluateAll(leads) {
		if f.match(r, s.loc) {
			rows = append(rows, r)
		}
	}

	rep := models.Report{
		Source:      src,
		GeneratedAt: s.now().In(s.loc).Format(time.RFC3339),
		KPIs:        s.KPIs(rows),
		SLA:         s.SLA(rows),
		ByTeam:      groupBy(rows, func(r models.LeadSLA) string { return r.Time }),
		ByOrigin:    groupBy(rows, func(r models.LeadSLA) string { return r.Origem }),
		ByStatus:    groupBy(rows, func(r models.LeadSLA) string { return r.Status }),
		ByDay:       s.byDay(rows),
		TotalRows:   len(rows),
		TopLate:     topLate(rows, TopLateSize),
	}
	limit, offset := clampLimitOffset(f.Limit, f.Offset, len(rows))
	if f.All {
		limit = len(rows)
	}
	rep.Rows = paginate(rows, limit, offset)
	return rep
}

func topLate(rows []models.LeadSLA, n int) []models.LeadSLA {
	out := make([]models.LeadSLA, 0, n)
	for _, r := range rows {
		if r.Late {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WaitMinutes > out[j].WaitMinutes })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func groupBy(rows []models.LeadSLA, key func(models.LeadSLA) string) []models.Group {
	idx := map[string]int{}
	var out []models.Group
	for _, r := range rows {
		k := strings.TrimSpace(key(r))
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, models.Group{Key: k})
		}
		add(&out[i], r)
	}
	// orden determinista
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if out == nil {
		out = []models.Group{}
	}
	return out
}

func (s *Service) byDay(rows []models.LeadSLA) []models.Group {
	out := groupBy(rows, func(r models.LeadSLA) string {
		t, ok := ingest.ParseLeadTime(r.DataEntrada, s.loc)
		if !ok {
			return ""
		}
		return t.In(s.loc).Format("2006-01-02")
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func add(g *models.Group, r models.LeadSLA) {
	g.Count++
	if r.Pending {
		g.Pendentes++
	}
	if r.Late {
		g.Late++
	}
	if IsAgendamento(r.Status) {
		g.Agendamentos++
	}
}

func median(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
func round3(f float64) float64 { return float64(int64(f*1000+0.5)) / 1000 }

// ParseFilter lee los filtros del query string (listas separadas por coma).
func ParseFilter(v url.Values, loc *time.Location) Filter {
	if loc == nil {
		loc = time.Local
	}
	from, _ := time.ParseInLocation("2006-01-02", v.Get("from"), loc)
	to, _ := time.ParseInLocation("2006-01-02", v.Get("to"), loc)
	late, _ := strconv.ParseBool(v.Get("late_only"))
	return Filter{
		Teams:    csvSet(v.Get("time")),
		Statuses: csvSet(v.Get("status")),
		Origins:  csvSet(v.Get("origem")),
		Search:   Fold(v.Get("q")),
		LateOnly: late,
		From:     from,
		To:       to,
		Limit:    atoiDef(v.Get("limit"), 100),
		Offset:   atoiDef(v.Get("offset"), 0),
	}
}

type Filter struct {
	Teams    map[string]struct{}
	Statuses map[string]struct{}
	Origins  map[string]struct{}
	Search   string
	LateOnly bool
	From, To time.Time
	Limit    int
	Offset   int
	All      bool // sin tope de página (export CSV)
}

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = Fold(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

func inSet(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[Fold(v)]
	return ok
}

func (f Filter) match(r models.LeadSLA, loc *time.Location) bool {
	if !inSet(f.Teams, r.Time) || !inSet(f.Statuses, r.Status) || !inSet(f.Origins, r.Origem) {
		return false
	}
	if f.LateOnly && !r.Late {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		t, ok := ingest.ParseLeadTime(r.DataEntrada, loc)
		if !ok {
			return false
		}
		d := dayIn(t, loc)
		if !f.From.IsZero() && d.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && d.After(f.To) {
			return false
		}
	}
	if f.Search != "" {
		hay := Fold(r.Nome + " " + r.Email + " " + r.Telefone)
		if !strings.Contains(hay, f.Search) {
			// "(11) 9999" también encuentra "119999..."
			ds := digits(f.Search)
			if ds == "" || !strings.Contains(digits(r.Telefone), ds) {
				return false
			}
		}
	}
	return true
}

func dayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
