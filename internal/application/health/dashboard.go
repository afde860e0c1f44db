package health

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// RenderDashboardHTML returns the status page served at GET /.
func RenderDashboardHTML(health CollectResult) string {
	names := make([]string, 0, len(health.Dependencies))
	for name := range health.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var deps strings.Builder
	for _, name := range names {
		dep := health.Dependencies[name]
		ping := "-"
		if ms, ok := dep.PingMs.(*int64); ok && ms != nil {
			ping = fmt.Sprintf("%d ms", *ms)
		}
		fmt.Fprintf(&deps, `<tr><td>%s</td><td class="%s">%s</td><td>%s</td></tr>`,
			html.EscapeString(name), pillClass(dep.Status), html.EscapeString(dep.Status), ping)
	}

	headline := "Todos os sistemas operacionais"
	if health.Status != "ok" {
		headline = "Alguns sistemas com problemas"
	}

	return `<!DOCTYPE html>
<html lang="pt">
<head>
  <meta charset="UTF-8">
  <title>AutoStand · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="10">
  <style>
    body { background: #f4f6f8; color: #1f2937; font-family: Arial, Helvetica, sans-serif; margin: 0; padding: 40px 20px; }
    .card { max-width: 760px; margin: 0 auto; background: #fff; border-radius: 16px; box-shadow: 0 10px 40px -10px rgba(0,0,0,0.15); padding: 32px; }
    h1 { margin: 0 0 6px; font-size: 28px; }
    .muted { color: #6b7280; font-size: 14px; margin-bottom: 24px; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    td, th { text-align: left; padding: 8px 4px; border-bottom: 1px solid #eef0f3; font-size: 14px; }
    .ok { color: #15803d; font-weight: bold; }
    .bad { color: #b91c1c; font-weight: bold; }
  </style>
</head>
<body>
  <div class="card">
    <h1>` + headline + `</h1>
    <div class="muted">` + html.EscapeString(health.Runtime.Platform) + ` · ` + html.EscapeString(health.Runtime.GoVersion) +
		fmt.Sprintf(` · uptime %ds`, health.Runtime.UptimeSeconds) + `</div>
    <table>
      <tr><th>Pedidos</th><th>Sucesso</th><th>Falhas</th><th>Taxa</th><th>Tempo médio</th></tr>
      ` + fmt.Sprintf(`<tr><td>%d</td><td>%d</td><td>%d</td><td>%s%%</td><td>%v ms</td></tr>`,
		health.Traffic.TotalRequests, health.Traffic.SuccessCount, health.Traffic.FailedCount,
		html.EscapeString(health.Traffic.SuccessRate), health.Traffic.AvgResponseTime) + `
    </table>
    <table>
      <tr><th>Dependência</th><th>Estado</th><th>Ping</th></tr>
      ` + deps.String() + `
    </table>
  </div>
</body>
</html>`
}

func pillClass(status string) string {
	switch status {
	case "connected", "reachable":
		return "ok"
	}
	return "bad"
}
