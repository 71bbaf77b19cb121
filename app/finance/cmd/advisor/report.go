package main

import (
	"html/template"
	"io"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// ReportData 用于模板渲染的数据
type ReportData struct {
	Date        string
	Profile     model.Profile
	Strategy    model.Strategy
	Source      string
	Diagnostics []string
}

const reportTpl = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>理财策略报告</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; background: var(--bg-color); color: var(--text-main); line-height: 1.6; margin: 0; padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 30px; }
        .meta { color: var(--text-secondary); }
        .card { background: var(--card-bg); border-radius: 12px; padding: 24px; margin-bottom: 24px; border: 1px solid var(--border-color); }
        .badge { padding: 2px 10px; border-radius: 20px; font-weight: bold; background: #dcfce7; color: #166534; }
        .badge-fallback { background: #fee2e2; color: #991b1b; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border-color); }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>理财策略报告</h1>
            <div class="meta">{{ .Date }} • 年龄 {{ .Profile.Age }} • {{ .Profile.RiskTolerance }}
                • <span class="badge {{ if eq .Source "fallback" }}badge-fallback{{ end }}">{{ .Source }}</span></div>
        </header>

        <div class="card">
            <h3>策略概述</h3>
            <p>{{ .Strategy.Summary }}</p>
            <p>每月储蓄目标: {{ printf "%.2f" .Strategy.MonthlySavingsTarget }} • 应急资金: {{ printf "%.2f" .Strategy.EmergencyFundTarget }}</p>
        </div>

        <div class="card">
            <h3>资产配置</h3>
            <table>
                <tr><th>类别</th><th>比例</th><th>风险</th><th>理由</th></tr>
                {{ range .Strategy.Allocations }}
                <tr><td>{{ .AssetClass }}</td><td>{{ printf "%.1f" .Percentage }}%</td><td>{{ .RiskLevel }}</td><td>{{ .Rationale }}</td></tr>
                {{ end }}
            </table>
        </div>

        <div class="card">
            <h3>行动建议</h3>
            <ul>{{ range .Strategy.KeyActions }}<li>{{ . }}</li>{{ end }}</ul>
            <h3>风险提示</h3>
            <ul>{{ range .Strategy.RiskWarnings }}<li>{{ . }}</li>{{ end }}</ul>
            <p class="meta">{{ .Strategy.ReviewTimeline }}</p>
        </div>

        {{ if .Diagnostics }}
        <div class="card">
            <h3>诊断信息</h3>
            <ul>{{ range .Diagnostics }}<li>{{ . }}</li>{{ end }}</ul>
        </div>
        {{ end }}
    </div>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Parse(reportTpl))

// renderReport 渲染模板
func renderReport(w io.Writer, data ReportData) error {
	return reportTemplate.Execute(w, data)
}
