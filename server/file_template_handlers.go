package server

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/jrsteele09/go-teamchat/sessions"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout"

// Page templates rendered inside layout.html.
const (
	pageLogin  = "login.html"
	pageBoards = "boards.html"
	pageBoard  = "board.html"
	pageDenied = "denied.html"
	pageError  = "error.html"
)

var pageNames = []string{pageLogin, pageBoards, pageBoard, pageDenied, pageError}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"initials": func(name string) string { return sessions.Initials(name, "?") },
	"clock":    func(t time.Time) string { return t.Local().Format("15:04") },
	"date":     func(t time.Time) string { return t.Local().Format("2 Jan 2006") },
	"lower":    strings.ToLower,
}

// parsePages pairs each page with the shared layout, once at start-up.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "layout.html", name)
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}
