package notification

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "confirmation"}}<html><body>
<p>Hi {{.ClientName}},</p>
<p>Your <strong>{{.ServiceName}}</strong> is confirmed for {{.When}} ({{.Duration}} minutes).</p>
{{if .MeetingLink}}<p>Join the session here: <a href="{{.MeetingLink}}">{{.MeetingLink}}</a></p>{{else}}<p>Your joining link will follow in a separate email.</p>{{end}}
{{if .FreeOfCharge}}<p>This session is complimentary.</p>{{end}}
<p>Booking reference: {{.BookingID}}</p>
<p>{{.SiteName}}</p>
</body></html>{{end}}

{{define "cancellation"}}<html><body>
<p>Hi {{.ClientName}},</p>
<p>Your <strong>{{.ServiceName}}</strong> on {{.When}} has been cancelled.</p>
<p>Booking reference: {{.BookingID}}</p>
<p>{{.SiteName}}</p>
</body></html>{{end}}

{{define "operator_alert"}}<html><body>
<p>Booking {{.BookingID}} ({{.ServiceName}} for {{.ClientName}} &lt;{{.ClientEmail}}&gt; on {{.When}}) is confirmed, but some follow-up steps failed:</p>
<ul>{{range .Failures}}<li><strong>{{.Step}}</strong>: {{.Error}}</li>{{end}}</ul>
<p>Use "resend" on the booking in the dashboard once the cause is fixed.</p>
</body></html>{{end}}
`))

type mailData struct {
	BookingID    string
	ClientName   string
	ClientEmail  string
	ServiceName  string
	When         string
	Duration     int
	MeetingLink  string
	FreeOfCharge bool
	SiteName     string
	Failures     []failureLine
}

type failureLine struct {
	Step  string
	Error string
}

func render(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
