package export

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

func TestWriteCSV(t *testing.T) {
	rows := []models.LeadSLA{{
		Lead: models.Lead{
			ID: "7", Nome: `Ana "Aninha", Souza`, Telefone: "11999999999", Status: "Novo",
			Time: "Geral", Origem: "Site", DataEntrada: "2025-08-01T10:00:00",
		},
		WaitMinutes: 125,
		Late:        true,
		Pending:     true,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	out := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Nome,Telefone,Email,Status,Time,Origem,Data Entrada,Primeira Interacao,Espera (min),Atrasado", lines[0])
	assert.Equal(t, `"7","Ana ""Aninha"", Souza","11999999999","","Novo","Geral","Site","2025-08-01T10:00:00","",125,true`, lines[1])
	assert.True(t, strings.HasPrefix(buf.String(), "\xEF\xBB\xBF"))
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestWhatsAppText(t *testing.T) {
	rep := models.Report{
		Source: models.SourceAttendances,
		KPIs:   models.KPIs{Total: 4, Agendamentos: 1, EmAtendimento: 2, Pendentes: 1, Conversion: 0.25},
		SLA:    models.SLASummary{ThresholdMinutes: 120, Late: 1, Responded: 3, AvgResponseMin: 42},
		Rows: []models.LeadSLA{
			{Lead: models.Lead{Nome: "Bia", Time: "Vendas"}, WaitMinutes: 10},
		},
		TopLate: []models.LeadSLA{
			{Lead: models.Lead{Nome: "Ana", Time: "Vendas"}, WaitMinutes: 130, Late: true},
		},
	}
	text := WhatsAppText(rep)

	assert.Contains(t, text, "*Relatório de Leads (atendimentos)*")
	assert.Contains(t, text, "Total: 4")
	assert.Contains(t, text, "Conversão: 25.0%")
	assert.Contains(t, text, "Tempo médio de resposta: 42 min")
	assert.Contains(t, text, "- Ana (Vendas) 130 min")
	assert.NotContains(t, text, "Bia")
}

func TestWhatsAppURL(t *testing.T) {
	link := WhatsAppURL("+55 (11) 99999-0000", "Total: 4 & mais")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/5511999990000", u.Path)
	assert.Equal(t, "Total: 4 & mais", u.Query().Get("text"))
	assert.NotContains(t, link, "+")

	assert.True(t, strings.HasPrefix(WhatsAppURL("", "x"), "https://wa.me/?text="))
}
