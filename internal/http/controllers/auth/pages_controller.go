package auth

import (
	"html/template"
	"net/http"
)

// PagesController renders the default landing pages. Integrating apps
// usually point redirect.success/redirect.failure at their own URLs;
// these pages are the out-of-the-box fallback and a debugging aid.
type PagesController struct{}

var successTmpl = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Login successful</title></head>
<body>
  <h1>Login successful</h1>
  <p>Signed in with <strong>{{.Provider}}</strong>.</p>
  {{if .Code}}
  <p>One-time login code (exchange it at <code>POST /auth/exchange</code>):</p>
  <pre>{{.Code}}</pre>
  {{end}}
</body>
</html>
`))

var errorTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Login failed</title></head>
<body>
  <h1>Login failed</h1>
  {{if .Provider}}<p>Provider: <strong>{{.Provider}}</strong></p>{{end}}
  <p>{{if .Description}}{{.Description}}{{else}}Something went wrong during login.{{end}}</p>
  {{if .Code}}<p><code>{{.Code}}</code></p>{{end}}
</body>
</html>
`))

// Success handles GET /auth/success.
func (c *PagesController) Success(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = successTmpl.Execute(w, map[string]string{
		"Provider": q.Get("provider"),
		"Code":     q.Get("code"),
	})
}

// Error handles GET /auth/error.
func (c *PagesController) Error(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = errorTmpl.Execute(w, map[string]string{
		"Provider":    q.Get("provider"),
		"Code":        q.Get("error"),
		"Description": q.Get("error_description"),
	})
}
