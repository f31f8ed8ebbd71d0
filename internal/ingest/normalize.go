package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

const (
	defaultStatus = "Novo"
	defaultTeam   = "Geral"
	defaultOrigin = "Site"
	isoLayout     = "2006-01-02T15:04:05"
)

// Normalizer convierte registros crudos del CRM a models.Lead.
type Normalizer struct {
	now   func() time.Time
	newID func() string
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now, newID: func() string { return "tmp-" + uuid.NewString() }}
}

// NormalizeRecords aplica la variante según la fuente; ignora items que no son objetos.
func (n *Normalizer) NormalizeRecords(src models.Source, items []any) []models.Lead {
	out := make([]models.Lead, 0, len(items))
	for _, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if src == models.SourceLeads {
			out = append(out, n.NormalizeRawLead(rec))
		} else {
			out = append(out, n.NormalizeAttendance(rec))
		}
	}
	return out
}

// NormalizeAttendance: registro de atendimento con sub-objeto "lead".
func (n *Normalizer) NormalizeAttendance(rec map[string]any) models.Lead {
	lead, _ := rec["lead"].(map[string]any)
	top := fields{rec}
	nested := fields{lead}

	entry := n.entryDate(top.str("datacadastro"), top.str("dataentrada"), top.str("data_entrada"),
		top.str("createdAt"), nested.str("datacadastro"))
	firstContact := firstDate(top.str("dataprimeirainteracao"), top.str("dataprimeiroatendimento"),
		top.str("primeira_interacao"))

	return models.Lead{
		ID:                n.id(first(top.str("codigo"), top.str("id"), top.str("codigoatendimento"), nested.str("codigo"))),
		Nome:              first(nested.str("nome"), top.str("nome"), top.str("nomecliente"), top.str("cliente")),
		Telefone:          first(nested.str("telefone1"), nested.str("celular"), top.str("telefone"), top.str("phone")),
		Email:             first(nested.str("email"), top.str("email")),
		Status:            coalesce(first(top.str("situacao"), top.str("status"), top.str("etapa")), defaultStatus),
		Time:              coalesce(first(top.str("equipe"), top.str("nomeequipe"), top.str("time"), nested.str("equipe")), defaultTeam),
		DataEntrada:       entry,
		PrimeiraInteracao: firstContact,
		Origem:            coalesce(first(nested.str("midia"), top.str("midia"), top.str("origem")), defaultOrigin),
		TemAtendimento:    true,
	}
}

// NormalizeRawLead: lead suelto, sin envoltorio de atendimento.
func (n *Normalizer) NormalizeRawLead(rec map[string]any) models.Lead {
	f := fields{rec}

	tem, ok := f.boolean("tem_atendimento", "temAtendimento")
	if !ok {
		tem = f.str("codigoatendimento") != ""
	}
	return models.Lead{
		ID:                n.id(first(f.str("codigo"), f.str("id"), f.str("codigolead"))),
		Nome:              first(f.str("nome"), f.str("name")),
		Telefone:          first(f.str("telefone1"), f.str("celular"), f.str("telefone"), f.str("phone")),
		Email:             f.str("email"),
		Status:            coalesce(first(f.str("situacao"), f.str("status")), defaultStatus),
		Time:              coalesce(first(f.str("equipe"), f.str("time")), defaultTeam),
		DataEntrada:       n.entryDate(f.str("datacadastro"), f.str("data_entrada"), f.str("createdAt")),
		PrimeiraInteracao: firstDate(f.str("dataprimeirainteracao"), f.str("primeira_interacao")),
		Origem:            coalesce(first(f.str("midia"), f.str("origem"), f.str("source")), defaultOrigin),
		TemAtendimento:    tem,
	}
}

func (n *Normalizer) id(v string) models.LeadID {
	if v == "" {
		return models.LeadID(n.newID())
	}
	return models.LeadID(v)
}

// entryDate nunca queda vacío: si nada parsea, se usa el momento actual.
func (n *Normalizer) entryDate(cands ...string) string {
	if d := firstDate(cands...); d != "" {
		return d
	}
	return n.now().Format(isoLayout)
}

func firstDate(cands ...string) string {
	for _, c := range cands {
		if d, ok := NormalizeDate(c); ok {
			return d
		}
	}
	return ""
}

type fields struct{ m map[string]any }

// str devuelve el valor como texto; números se formatean, el resto se ignora.
func (f fields) str(key string) string {
	if f.m == nil {
		return ""
	}
	switch v := f.m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (f fields) boolean(keys ...string) (bool, bool) {
	if f.m == nil {
		return false, false
	}
	for _, k := range keys {
		switch v := f.m[k].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		case json.Number:
			return v.String() != "0", true
		}
	}
	return false, false
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
