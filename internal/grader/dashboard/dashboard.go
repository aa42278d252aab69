package dashboard

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/build-flow-labs/apigrader/internal/grader/history"
	"github.com/build-flow-labs/apigrader/internal/grader/report"
)

//go:embed templates/*.html
var embeddedFS embed.FS

// Dashboard serves the recorded runs of a history store.
type Dashboard struct {
	store        RunStore
	overviewTmpl *template.Template
	runTmpl      *template.Template
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Dashboard and parses its templates.
func New(store RunStore, logger *slog.Logger) (*Dashboard, error) {
	d := &Dashboard{store: store, logger: logger, now: time.Now}
	funcMap := template.FuncMap{
		"timeAgo": func(t time.Time) string { return timeAgo(d.now().Sub(t)) },
		"points":  report.Points,
		"pct":     func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	}

	// Separate sets so each page's {{define "content"}} does not conflict.
	var err error
	d.overviewTmpl, err = template.New("").Funcs(funcMap).ParseFS(embeddedFS,
		"templates/layout.html", "templates/overview.html")
	if err != nil {
		return nil, fmt.Errorf("parsing overview templates: %w", err)
	}
	d.runTmpl, err = template.New("").Funcs(funcMap).ParseFS(embeddedFS,
		"templates/layout.html", "templates/run.html")
	if err != nil {
		return nil, fmt.Errorf("parsing run templates: %w", err)
	}
	return d, nil
}

// RegisterRoutes adds dashboard routes to the given mux.
func (d *Dashboard) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", d.handleRoot)
	mux.HandleFunc("GET /ui", d.handleOverview)
	mux.HandleFunc("GET /ui/runs/{runID}", d.handleRun)
	mux.HandleFunc("GET /api/runs", d.handleAPIList)
	mux.HandleFunc("GET /api/runs/{runID}", d.handleAPIDetail)
	mux.HandleFunc("GET /api/students", d.handleAPIStudents)
	mux.HandleFunc("GET /health", d.handleHealth)
}

// Serve listens on addr until ctx is canceled.
func (d *Dashboard) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	d.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("dashboard listening", "url", "http://"+addr+"/ui")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		d.logger.Info("shutting down dashboard")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func timeAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}

// Page data types

type overviewData struct {
	Title    string
	RunCount int
	Latest   []history.Entry
	Entries  []history.Entry
	Filters  ListOptions
}

type runData struct {
	Title string
	Run   history.Entry
}
