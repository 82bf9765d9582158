package emails

import (
	"html/template"
	"strings"
	"time"
)

// Colors are literal in the stylesheet; html/template filters dynamic CSS values.
var mailTemplates = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Site}}</title>
  <style>
    body { margin: 0; padding: 0; background-color: #F3F4F6; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; color: #1F2937; }
    .card { width: 600px; max-width: 100%; margin: 40px auto; background-color: #FFFFFF; border-radius: 8px; }
    .brand { padding: 32px 0 16px 0; text-align: center; font-size: 22px; font-weight: 700; }
    .brand a { color: #E4572E; text-decoration: none; }
    .body { padding: 0 48px 24px 48px; font-size: 16px; line-height: 1.6; }
    .body h1 { font-size: 24px; margin: 0 0 20px 0; }
    .cta { display: inline-block; background-color: #E4572E; color: #FFFFFF; padding: 12px 32px; border-radius: 6px; font-weight: 600; text-decoration: none; }
    .quote { border-left: 3px solid #E4572E; padding: 8px 16px; background-color: #F9FAFB; white-space: pre-wrap; }
    .footer { padding: 16px 48px 32px 48px; text-align: center; font-size: 13px; color: #6B7280; }
  </style>
</head>
<body>
  <div class="card">
    <div class="brand"><a href="{{.BaseURL}}">{{.Site}}</a></div>
    <div class="body">{{.Content}}</div>
    <div class="footer">&copy; {{.Year}} {{.Site}}. All rights reserved.</div>
  </div>
</body>
</html>`))

func init() {
	template.Must(mailTemplates.New("pending").Parse(`<h1>New listing pending review</h1>
<p>Listing <strong>{{.Title}}</strong> ({{.HumanID}}) was just submitted and is waiting for moderation.</p>`))
	template.Must(mailTemplates.New("approved").Parse(`<h1>Good news, {{.Name}}!</h1>
<p>Your listing <strong>{{.Title}}</strong> ({{.HumanID}}) has been approved and is now visible to buyers.</p>
<p style="text-align: center;"><a href="{{.URL}}" class="cta">View your listing</a></p>`))
	template.Must(mailTemplates.New("refused").Parse(`<h1>Hi {{.Name}},</h1>
<p>Your listing <strong>{{.Title}}</strong> ({{.HumanID}}) was reviewed and could not be approved.</p>
<p>Reason given by our moderators:</p>
<p class="quote">{{.Reason}}</p>
<p>You can create a new listing that follows our posting rules at any time.</p>`))
}

type layoutData struct {
	Site    string
	BaseURL string
	Content template.HTML
	Year    int
}

// contentData feeds the per-message templates. Unused fields stay empty.
type contentData struct {
	Name    string
	Title   string
	HumanID string
	URL     string
	Reason  string
}

func render(name string, data interface{}) (string, error) {
	var b strings.Builder
	if err := mailTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EmailLayout renders the named content template inside the shared shell.
func EmailLayout(siteName, baseURL, content string, data contentData) (string, error) {
	inner, err := render(content, data)
	if err != nil {
		return "", err
	}
	return render("layout", layoutData{
		Site:    siteName,
		BaseURL: baseURL,
		Content: template.HTML(inner),
		Year:    time.Now().Year(),
	})
}
