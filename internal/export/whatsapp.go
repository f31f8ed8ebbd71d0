package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

// WhatsAppText arma el resumen que se comparte por wa.me.
func WhatsAppText(rep models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Relatório de Leads (%s)*\n", rep.Source)
	if rep.GeneratedAt != "" {
		fmt.Fprintf(&b, "Gerado em: %s\n", rep.GeneratedAt)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %d\n", rep.KPIs.Total)
	fmt.Fprintf(&b, "Agendamentos: %d\n", rep.KPIs.Agendamentos)
	fmt.Fprintf(&b, "Em atendimento: %d\n", rep.KPIs.EmAtendimento)
	fmt.Fprintf(&b, "Pendentes: %d\n", rep.KPIs.Pendentes)
	fmt.Fprintf(&b, "Conversão: %.1f%%\n", rep.KPIs.Conversion*100)
	fmt.Fprintf(&b, "\n*SLA (%d min)*\n", rep.SLA.ThresholdMinutes)
	fmt.Fprintf(&b, "Atrasados: %d\n", rep.SLA.Late)
	if rep.SLA.Responded > 0 {
		fmt.Fprintf(&b, "Tempo médio de resposta: %.0f min\n", rep.SLA.AvgResponseMin)
	}

	if len(rep.TopLate) > 0 {
		b.WriteString("\n*Leads atrasados*\n")
		for _, r := range rep.TopLate {
			nome := r.Nome
			if nome == "" {
				nome = "(sem nome)"
			}
			fmt.Fprintf(&b, "- %s (%s) %d min\n", nome, r.Time, r.WaitMinutes)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// WhatsAppURL devuelve el deep link wa.me; phone vacío deja elegir el contacto.
func WhatsAppURL(phone, text string) string {
	// QueryEscape usa "+" para espacios; wa.me espera %20
	esc := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + digits(phone) + "?text=" + esc
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
