package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/bstardust/geomap/internal/logger"
)

//go:embed pages.html.tmpl
var pagesSource string

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"km": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(pagesSource))

type resultPage struct {
	Locations int
	TotalKm   float64
	AverageKm float64
	Link      string
	Unlocated []string
	Warnings  []string
	// Photos is zero outside images mode
	Photos  int
	Located int
}

type messagePage struct {
	Title   string
	Message string
	Files   []string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("Rendering %s page failed: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) message(w http.ResponseWriter, status int, title, msg string, files []string) {
	s.render(w, status, "message", messagePage{Title: title, Message: msg, Files: files})
}
