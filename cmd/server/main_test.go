package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelcm/crm-leads-dashboard/internal/ingest"
)

func setCRM(t *testing.T, base, key string) {
	t.Helper()
	t.Setenv("CRM_BASE_URL", base)
	t.Setenv("CRM_API_KEY", key)
	t.Setenv("CACHE_TTL_SECONDS", "0")
	t.Setenv("TZ_NAME", "UTC")
}

func TestReportCommandCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("finalidade") == "1" {
			w.Write([]byte(`{"lista": [{"codigo": 1, "lead": {"nome": "Ana", "telefone1": "11999999999"}, "datacadastro": "01/08/2025 10:00"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	setCRM(t, srv.URL, "k")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"report", "--format", "csv"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"1","Ana","11999999999"`))
}

func TestReportCommandMissingKey(t *testing.T) {
	setCRM(t, "http://127.0.0.1:1", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"report"})
	assert.EqualError(t, cmd.Execute(), "CRM_API_KEY not configured")
}

func TestReportCommandBadFlags(t *testing.T) {
	setCRM(t, "http://127.0.0.1:1", "k")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"report", "--source", "x"})
	assert.Error(t, cmd.Execute())
}

func TestFallbackEntryDateInConfiguredZone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	lead := ingest.NewNormalizer(clockIn(loc)).NormalizeRawLead(map[string]any{})
	entry, ok := ingest.ParseLeadTime(lead.DataEntrada, loc)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), entry, 2*time.Second)
}
