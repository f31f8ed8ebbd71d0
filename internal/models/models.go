package models

import (
	"encoding/json"
	"strconv"
)

// Source identifica de qué endpoint del CRM vienen los registros.
type Source string

const (
	SourceAttendances Source = "atendimentos"
	SourceLeads       Source = "leads"
)

func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceAttendances, "":
		return SourceAttendances, true
	case SourceLeads:
		return SourceLeads, true
	}
	return "", false
}

// LeadID se serializa como número cuando el CRM lo manda numérico.
type LeadID string

func (id LeadID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil && (len(s) == 1 || s[0] != '0') {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id *LeadID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = LeadID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = LeadID(n.String())
	return nil
}

type Lead struct {
	ID                LeadID `json:"id"`
	Nome              string `json:"nome"`
	Telefone          string `json:"telefone"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
	Time              string `json:"time"`
	DataEntrada       string `json:"data_entrada"`
	PrimeiraInteracao string `json:"primeira_interacao,omitempty"`
	Origem            string `json:"origem"`
	TemAtendimento    bool   `json:"tem_atendimento"`
}

// LeadSLA es un lead con su espera calculada.
type LeadSLA struct {
	Lead
	WaitMinutes int  `json:"espera_min"`
	Late        bool `json:"atrasado"`
	Pending     bool `json:"pendente"`
}

type KPIs struct {
	Total         int     `json:"total"`
	Agendamentos  int     `json:"agendamentos"`
	EmAtendimento int     `json:"em_atendimento"`
	Pendentes     int     `json:"pendentes"`
	Conversion    float64 `json:"conversao"`
}

type SLASummary struct {
	ThresholdMinutes int     `json:"limite_min"`
	Late             int     `json:"atrasados"`
	Responded        int     `json:"respondidos"`
	OnTimeRate       float64 `json:"taxa_no_prazo"`
	AvgResponseMin   float64 `json:"media_resposta_min"`
	MedianResponse   float64 `json:"mediana_resposta_min"`
}

type Group struct {
	Key          string `json:"chave"`
	Count        int    `json:"total"`
	Pendentes    int    `json:"pendentes"`
	Late         int    `json:"atrasados"`
	Agendamentos int    `json:"agendamentos"`
}

type Report struct {
	Source      Source     `json:"source"`
	GeneratedAt string     `json:"gerado_em"`
	KPIs        KPIs       `json:"kpis"`
	SLA         SLASummary `json:"sla"`
	ByTeam      []Group    `json:"por_time"`
	ByOrigin    []Group    `json:"por_origem"`
	ByStatus    []Group    `json:"por_status"`
	ByDay       []Group    `json:"por_dia"`
	Rows        []LeadSLA  `json:"leads"`
	TotalRows   int        `json:"total_leads"`
	// atrasados con más espera de todo lo filtrado, no solo de la página
	TopLate     []LeadSLA  `json:"mais_atrasados"`
}
