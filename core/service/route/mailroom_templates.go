package route

import (
	"html/template"
	"strings"
	"time"

	"mailroom_server/core/domain"
	"mailroom_server/pkg/apperr"
)

// forwardData feeds the department forward template.
type forwardData struct {
	Protocol    string
	Sender      string
	Subject     string
	ReceivedAt  string
	Category    string
	Priority    string
	Department  string
	Confidence  string
	RulesFired  []string
	Entities    []entityRow
	Match       *matchRow
	Body        string
	Attachments []string
}

type entityRow struct {
	Type   string
	Values string
}

type matchRow struct {
	Number     string
	SchoolName string
	Score      string
	Method     string
}

// replyData feeds the sender auto-reply template.
type replyData struct {
	Protocol   string
	Category   string
	SLA        string
	ReceivedAt string
}

var forwardTmpl = template.Must(template.New("forward").Parse(`<html>
<body>
<h2>Mailroom forward &mdash; protocol {{.Protocol}}</h2>
<table border="0" cellpadding="4">
<tr><td><b>From</b></td><td>{{.Sender}}</td></tr>
<tr><td><b>Subject</b></td><td>{{.Subject}}</td></tr>
<tr><td><b>Received</b></td><td>{{.ReceivedAt}}</td></tr>
<tr><td><b>Category</b></td><td>{{.Category}} ({{.Confidence}})</td></tr>
<tr><td><b>Priority</b></td><td>{{.Priority}}</td></tr>
<tr><td><b>Department</b></td><td>{{.Department}}</td></tr>
{{if .RulesFired}}<tr><td><b>Rules</b></td><td>{{range .RulesFired}}{{.}} {{end}}</td></tr>{{end}}
</table>
{{if .Match}}
<h3>Matched contract</h3>
<p>{{.Match.Number}} &mdash; {{.Match.SchoolName}} (score {{.Match.Score}}, {{.Match.Method}})</p>
{{end}}
{{if .Entities}}
<h3>Extracted entities</h3>
<table border="1" cellpadding="4">
{{range .Entities}}<tr><td>{{.Type}}</td><td>{{.Values}}</td></tr>
{{end}}</table>
{{end}}
{{if .Attachments}}<p><b>Attachments:</b> {{range .Attachments}}{{.}} {{end}}</p>{{end}}
<h3>Original message</h3>
<pre>{{.Body}}</pre>
</body>
</html>`))

var replyTmpl = template.Must(template.New("reply").Parse(`<html>
<body>
<p>Hello,</p>
<p>We received your message and filed it under protocol <b>{{.Protocol}}</b>
on {{.ReceivedAt}}.</p>
<p>It was classified as <b>{{.Category}}</b> and handed to the responsible
team. You can expect a reply {{.SLA}}.</p>
<p>Please quote the protocol number in any follow-up.</p>
<p>&mdash; Contract Mailroom</p>
</body>
</html>`))

func renderForward(data forwardData) (string, error) {
	var sb strings.Builder
	if err := forwardTmpl.Execute(&sb, data); err != nil {
		return "", apperr.TemplateError("forward", err)
	}
	return sb.String(), nil
}

func renderReply(data replyData) (string, error) {
	var sb strings.Builder
	if err := replyTmpl.Execute(&sb, data); err != nil {
		return "", apperr.TemplateError("reply", err)
	}
	return sb.String(), nil
}

// slaForPriority phrases the reply-time commitment in the auto-reply.
func slaForPriority(p domain.Priority) string {
	switch p {
	case domain.PriorityUrgent:
		return "within 4 business hours"
	case domain.PriorityHigh:
		return "within 1 business day"
	case domain.PriorityLow:
		return "within 3 business days"
	default:
		return "within 2 business days"
	}
}

func formatReceivedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
