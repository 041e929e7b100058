package api

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mpawlak/ksewatch/internal/risk"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"cellStyle": func(c risk.Cell) template.CSS {
			if c.Score == nil {
				return "background-color: rgba(255,255,255,0.04)"
			}
			r, g, b := risk.LevelColor(c.Score.RiskLevel)
			return template.CSS(fmt.Sprintf("background-color: rgba(%d,%d,%d,%.2f)", r, g, b, c.Opacity))
		},
		"levelLabel": levelLabel,
		"levelClass": func(l risk.Level) string {
			return "level-" + string(l)
		},
		"mw": func(v float64) string {
			return fmt.Sprintf("%.0f MW", v)
		},
		"mw1": func(v float64) string {
			return fmt.Sprintf("%.1f MW", v)
		},
		"hourLabel": func(h int) string {
			return fmt.Sprintf("%02d:00", h)
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"upper": strings.ToUpper,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

func levelLabel(l risk.Level) string {
	switch l {
	case risk.LevelLow:
		return "niskie"
	case risk.LevelMedium:
		return "średnie"
	case risk.LevelHigh:
		return "wysokie"
	case risk.LevelCritical:
		return "krytyczne"
	default:
		return string(l)
	}
}
