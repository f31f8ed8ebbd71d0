package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

var fixedNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	n := NewNormalizer(func() time.Time { return fixedNow })
	n.newID = func() string { return "tmp-fixed" }
	return n
}

func record(t *testing.T, raw string) map[string]any {
	t.Helper()
	v, err := decodeBytes([]byte(raw))
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	return m
}

func TestNormalizeAttendanceNestedPhone(t *testing.T) {
	rec := record(t, `{"codigo": 77, "lead": {"nome": "Maria", "telefone1": "11999999999"}, "datacadastro": "25/12/2024 14:30"}`)

	got := testNormalizer().NormalizeAttendance(rec)

	want := models.Lead{
		ID:             "77",
		Nome:           "Maria",
		Telefone:       "11999999999",
		Status:         "Novo",
		Time:           "Geral",
		DataEntrada:    "2024-12-25T14:30:00",
		Origem:         "Site",
		TemAtendimento: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lead mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeAttendanceFallbackChains(t *testing.T) {
	n := testNormalizer()

	t.Run("phone falls to celular then top level", func(t *testing.T) {
		got := n.NormalizeAttendance(record(t, `{"lead": {"telefone1": "", "celular": "21988887777"}, "telefone": "x"}`))
		assert.Equal(t, "21988887777", got.Telefone)

		got = n.NormalizeAttendance(record(t, `{"lead": {}, "telefone": "", "phone": "5511"}`))
		assert.Equal(t, "5511", got.Telefone)
	})

	t.Run("name and team", func(t *testing.T) {
		got := n.NormalizeAttendance(record(t, `{"nomecliente": "João", "nomeequipe": "Locação"}`))
		assert.Equal(t, "João", got.Nome)
		assert.Equal(t, "Locação", got.Time)

		got = n.NormalizeAttendance(record(t, `{"lead": {"equipe": "Vendas"}}`))
		assert.Equal(t, "Vendas", got.Time)
	})

	t.Run("status and origin", func(t *testing.T) {
		got := n.NormalizeAttendance(record(t, `{"etapa": "Visita agendada", "lead": {"midia": "Instagram"}, "origem": "Portal"}`))
		assert.Equal(t, "Visita agendada", got.Status)
		assert.Equal(t, "Instagram", got.Origem)
	})

	t.Run("dates", func(t *testing.T) {
		got := n.NormalizeAttendance(record(t, `{"datacadastro": "lixo", "data_entrada": "2024-01-02 08:00:00", "dataprimeiroatendimento": "02/01/2024 09:15"}`))
		assert.Equal(t, "2024-01-02T08:00:00", got.DataEntrada)
		assert.Equal(t, "2024-01-02T09:15:00", got.PrimeiraInteracao)
	})

	t.Run("id falls back to nested lead then synthesized", func(t *testing.T) {
		got := n.NormalizeAttendance(record(t, `{"lead": {"codigo": "L-9"}}`))
		assert.Equal(t, models.LeadID("L-9"), got.ID)

		got = n.NormalizeAttendance(record(t, `{}`))
		assert.Equal(t, models.LeadID("tmp-fixed"), got.ID)
	})
}

func TestNormalizeMissingEntryDateUsesNow(t *testing.T) {
	got := testNormalizer().NormalizeAttendance(record(t, `{"datacadastro": "31/02/2024"}`))
	assert.Equal(t, "2025-08-01T12:00:00", got.DataEntrada)
	assert.Empty(t, got.PrimeiraInteracao)
}

func TestNormalizeRejectsUnparseableISO(t *testing.T) {
	got := testNormalizer().NormalizeRawLead(record(t,
		`{"data_entrada": "2024-02-31T10:00:00", "primeira_interacao": "2024-13-01T10:00"}`))
	assert.Equal(t, "2025-08-01T12:00:00", got.DataEntrada)
	assert.Empty(t, got.PrimeiraInteracao)

	got = testNormalizer().NormalizeRawLead(record(t,
		`{"data_entrada": "2024-12-25T10:00:00-0300", "primeira_interacao": "2024-12-25T14:30Z"}`))
	assert.Equal(t, "2024-12-25T10:00:00-0300", got.DataEntrada)
	assert.Equal(t, "2024-12-25T14:30Z", got.PrimeiraInteracao)
}

func TestNormalizeRawLead(t *testing.T) {
	n := testNormalizer()

	got := n.NormalizeRawLead(record(t, `{
		"codigo": 10, "nome": "Ana", "celular": 11988887777, "email": "ana@x.com",
		"situacao": "Em atendimento", "equipe": "Vendas", "datacadastro": "01/08/2025 10:00",
		"dataprimeirainteracao": "01/08/2025 10:30", "midia": "Facebook", "codigoatendimento": 5
	}`))

	want := models.Lead{
		ID:                "10",
		Nome:              "Ana",
		Telefone:          "11988887777",
		Email:             "ana@x.com",
		Status:            "Em atendimento",
		Time:              "Vendas",
		DataEntrada:       "2025-08-01T10:00:00",
		PrimeiraInteracao: "2025-08-01T10:30:00",
		Origem:            "Facebook",
		TemAtendimento:    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lead mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeRawLeadTemAtendimento(t *testing.T) {
	n := testNormalizer()
	assert.False(t, n.NormalizeRawLead(record(t, `{"nome": "x"}`)).TemAtendimento)
	assert.True(t, n.NormalizeRawLead(record(t, `{"temAtendimento": true}`)).TemAtendimento)
	assert.False(t, n.NormalizeRawLead(record(t, `{"tem_atendimento": "false", "codigoatendimento": 3}`)).TemAtendimento)
	assert.Equal(t, "Site", n.NormalizeRawLead(record(t, `{"source": ""}`)).Origem)
	assert.Equal(t, "Google", n.NormalizeRawLead(record(t, `{"source": "Google"}`)).Origem)
}

func TestNormalizeRecordsSkipsNonObjects(t *testing.T) {
	items := []any{map[string]any{"nome": "a"}, "junk", nil, 3, map[string]any{"nome": "b"}}
	got := testNormalizer().NormalizeRecords(models.SourceLeads, items)
	require.Len(t, got, 2)
	assert.False(t, got[0].TemAtendimento)
}

func TestSynthesizedIDsAreUnique(t *testing.T) {
	n := NewNormalizer(nil)
	a := n.NormalizeRawLead(map[string]any{})
	b := n.NormalizeRawLead(map[string]any{})
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, strings.HasPrefix(string(a.ID), "tmp-"))
}
