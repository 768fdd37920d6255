package handler

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PagesHandler serves minimal HTML shells for the dashboard sections and
// the login/forbidden pages. The real UI is a separate frontend; these
// pages exist so gate redirects land on something concrete.
type PagesHandler struct {
	tmpl *template.Template
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</body>
</html>
`))

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{tmpl: pageTemplate}
}

type pageData struct {
	Title string
	Body  string
}

func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageData{Title: "Login", Body: "Sign in with your school account."})
}

func (h *PagesHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
	h.render(w, pageData{Title: "Forbidden", Body: "You do not have access to this page."})
}

func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if section == "" {
		section = "home"
	}
	h.render(w, pageData{Title: "Dashboard: " + section, Body: "Section " + section})
}

func (h *PagesHandler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = h.tmpl.Execute(w, data)
}
