package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/build-flow-labs/apigrader/internal/grader/history"
)

func (d *Dashboard) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui", http.StatusFound)
}

func (d *Dashboard) handleOverview(w http.ResponseWriter, r *http.Request) {
	all, err := d.store.List("", 0)
	if err != nil {
		d.serverError(w, "listing runs", err)
		return
	}
	opts := parseListOptions(r)
	if r.URL.Query().Get("sort") == "" {
		opts.SortDesc = true
	}

	data := overviewData{
		Title:    "Runs",
		RunCount: len(all),
		Latest:   latestPerStudent(all),
		Entries:  filterEntries(all, opts),
		Filters:  opts,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.overviewTmpl.ExecuteTemplate(w, "layout", data); err != nil {
		d.logger.Error("rendering overview", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (d *Dashboard) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := d.lookup(w, r)
	if !ok {
		return
	}
	data := runData{
		Title: fmt.Sprintf("%s · %s", run.Student, run.Profile),
		Run:   run,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.runTmpl.ExecuteTemplate(w, "layout", data); err != nil {
		d.logger.Error("rendering run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (d *Dashboard) handleAPIList(w http.ResponseWriter, r *http.Request) {
	all, err := d.store.List("", 0)
	if err != nil {
		d.serverError(w, "listing runs", err)
		return
	}
	opts := parseListOptions(r)
	if r.URL.Query().Get("sort") == "" {
		opts.SortDesc = true
	}
	entries := filterEntries(all, opts)
	if entries == nil {
		entries = []history.Entry{}
	}
	d.writeJSON(w, entries)
}

func (d *Dashboard) handleAPIDetail(w http.ResponseWriter, r *http.Request) {
	run, ok := d.lookup(w, r)
	if !ok {
		return
	}
	d.writeJSON(w, run)
}

func (d *Dashboard) handleAPIStudents(w http.ResponseWriter, r *http.Request) {
	all, err := d.store.List("", 0)
	if err != nil {
		d.serverError(w, "listing runs", err)
		return
	}
	d.writeJSON(w, latestPerStudent(all))
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (d *Dashboard) lookup(w http.ResponseWriter, r *http.Request) (history.Entry, bool) {
	run, err := d.store.Get(r.PathValue("runID"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		http.NotFound(w, r)
		return history.Entry{}, false
	case err != nil:
		d.serverError(w, "loading run", err)
		return history.Entry{}, false
	}
	return run, true
}

func (d *Dashboard) serverError(w http.ResponseWriter, what string, err error) {
	d.logger.Error(what, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (d *Dashboard) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.logger.Error("encoding response", "error", err)
	}
}

func parseListOptions(r *http.Request) ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return ListOptions{
		Student:   q.Get("student"),
		Profile:   q.Get("profile"),
		Grade:     q.Get("grade"),
		SortField: q.Get("sort"),
		SortDesc:  q.Get("desc") == "true",
		Limit:     limit,
	}
}
