package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

// Header fijo del CSV exportado.
var Header = []string{"ID", "Nome", "Telefone", "Email", "Status", "Time", "Origem",
	"Data Entrada", "Primeira Interacao", "Espera (min)", "Atrasado"}

// WriteCSV escribe BOM + header + una fila por lead. Los campos de texto van
// siempre entre comillas; números y booleanos van sin comillas.
func WriteCSV(w io.Writer, rows []models.LeadSLA) error {
	bw := bufio.NewWriter(w)
	// BOM para que Excel abra el UTF-8 bien
	bw.WriteString("\xEF\xBB\xBF")
	bw.WriteString(strings.Join(Header, ",") + "\n")
	for _, r := range rows {
		fields := []string{
			quote(string(r.ID)),
			quote(r.Nome),
			quote(r.Telefone),
			quote(r.Email),
			quote(r.Status),
			quote(r.Time),
			quote(r.Origem),
			quote(r.DataEntrada),
			quote(r.PrimeiraInteracao),
			strconv.Itoa(r.WaitMinutes),
			strconv.FormatBool(r.Late),
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
