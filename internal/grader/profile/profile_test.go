package profile

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/build-flow-labs/apigrader/scorer"
)

func TestBuiltinProfiles(t *testing.T) {
	r := NewRegistry()

	want := []string{"full", "professor", "quick", "static"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("built-in profiles must be valid: %v", err)
	}

	for _, p := range r.List() {
		t.Run(p.Name, func(t *testing.T) {
			if !r.Builtin(p.Name) {
				t.Error("expected built-in")
			}
			if p.Description == "" {
				t.Error("missing description")
			}
			// Every category must be fully reachable.
			assigned := map[string]float64{}
			for _, c := range p.Checks {
				assigned[c.Category] += c.Points
			}
			for _, c := range p.Categories {
				if math.Abs(assigned[c.Name]-c.Max) > 1e-9 {
					t.Errorf("category %s: checks assign %g, max %g", c.Name, assigned[c.Name], c.Max)
				}
			}
		})
	}
}

func TestDefaultProfileWeights(t *testing.T) {
	p, err := NewRegistry().Get(Default)
	if err != nil {
		t.Fatal(err)
	}
	want := []scorer.CategorySpec{{Name: "crud", Max: 60}, {Name: "routes", Max: 25}, {Name: "relationships", Max: 15}}
	table := p.Table()
	if len(table) != len(want) {
		t.Fatalf("Table = %+v", table)
	}
	for i := range want {
		if table[i] != want[i] {
			t.Errorf("table[%d] = %+v, want %+v", i, table[i], want[i])
		}
	}
	if p.Max() != 100 {
		t.Errorf("Max = %g, want 100", p.Max())
	}

	table[0].Max = 1
	if p.Categories[0].Max != 60 {
		t.Error("Table must return a copy")
	}
}

func TestNeedsServer(t *testing.T) {
	r := NewRegistry()
	tests := map[string]bool{
		"quick":     true,
		"professor": true,
		"full":      true,
		"static":    false,
	}
	for name, want := range tests {
		p, err := r.Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := p.NeedsServer(); got != want {
			t.Errorf("%s: NeedsServer = %v, want %v", name, got, want)
		}
	}

	static, _ := r.Get("static")
	if !static.HasKind(KindStatic) {
		t.Error("static profile must have static checks")
	}
}

func TestWeight(t *testing.T) {
	p, _ := NewRegistry().Get("professor")
	w, ok := p.Weight("stores.list")
	if !ok || w.Category != "stores" || w.Points != 10 {
		t.Errorf("Weight(stores.list) = %+v, %v", w, ok)
	}
	if p.Has("routes.duplicate_email") {
		t.Error("professor does not check duplicate e-mails")
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("nope")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Profile {
		return &Profile{
			Name:       "custom",
			Categories: []scorer.CategorySpec{{Name: "crud", Max: 10}},
			Checks:     []CheckWeight{{ID: "users.create", Category: "crud", Points: 10}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"zero points allowed", func(p *Profile) {
			p.Checks = append(p.Checks, CheckWeight{ID: "manifest.express", Category: "crud"})
		}, ""},
		{"missing name", func(p *Profile) { p.Name = "" }, "name is required"},
		{"no categories", func(p *Profile) { p.Categories = nil; p.Checks = nil }, "at least one category"},
		{"non-positive max", func(p *Profile) { p.Categories[0].Max = 0; p.Checks = nil }, "max must be positive"},
		{"duplicate category", func(p *Profile) {
			p.Categories = append(p.Categories, scorer.CategorySpec{Name: "crud", Max: 5})
		}, "declared twice"},
		{"unknown check", func(p *Profile) { p.Checks[0].ID = "users.teleport" }, "does not exist"},
		{"unknown category", func(p *Profile) { p.Checks[0].Category = "style" }, "unknown category"},
		{"negative points", func(p *Profile) { p.Checks[0].Points = -1 }, "must not be negative"},
		{"duplicate check", func(p *Profile) {
			p.Checks = append(p.Checks, CheckWeight{ID: "users.create", Category: "crud"})
		}, "listed twice"},
		{"over max", func(p *Profile) {
			p.Checks = append(p.Checks, CheckWeight{ID: "users.list", Category: "crud", Points: 0.5})
		}, "max is 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "single.yaml")
	os.WriteFile(single, []byte(`name: quick
description: Only users.
categories:
  - name: users
    max: 10
checks:
  - {id: users.create, category: users, points: 5}
  - {id: users.list, category: users, points: 5}
`), 0o644)

	multi := filepath.Join(dir, "multi.yaml")
	os.WriteFile(multi, []byte(`profiles:
  - name: turma-a
    categories: [{name: crud, max: 5}]
    checks: [{id: users.create, category: crud, points: 5}]
  - name: turma-b
    categories: [{name: crud, max: 5}]
    checks: [{id: stores.create, category: crud, points: 5}]
`), 0o644)

	r := NewRegistry()
	if err := r.LoadFile(single); err != nil {
		t.Fatalf("LoadFile(single): %v", err)
	}
	p, _ := r.Get("quick")
	if p.Description != "Only users." || r.Builtin("quick") {
		t.Errorf("custom profile should replace the built-in, got %+v", p)
	}

	if err := r.LoadFile(multi); err != nil {
		t.Fatalf("LoadFile(multi): %v", err)
	}
	for _, name := range []string{"turma-a", "turma-b"} {
		if _, err := r.Get(name); err != nil {
			t.Error(err)
		}
	}
}

func TestLoadFileRejects(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"unknown field": "name: x\nweights: {}\ncategories: [{name: a, max: 1}]\nchecks: []\n",
		"over max":      "name: x\ncategories: [{name: a, max: 1}]\nchecks: [{id: users.create, category: a, points: 2}]\n",
		"malformed":     "name: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			os.WriteFile(path, []byte(content), 0o644)
			r := NewRegistry()
			if err := r.LoadFile(path); err == nil {
				t.Error("expected error")
			}
			if _, err := r.Get("x"); err == nil {
				t.Error("invalid profile must not be registered")
			}
		})
	}

	if err := NewRegistry().LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, _ := NewRegistry().Get("static")
	data, err := Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Name != "static" || len(decoded[0].Checks) != len(p.Checks) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestCatalog(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Catalog() {
		if seen[c.ID] {
			t.Errorf("duplicate catalog id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Title == "" {
			t.Errorf("%s has no title", c.ID)
		}
		if c.Kind != KindStatic && c.Kind != KindHTTP {
			t.Errorf("%s has kind %q", c.ID, c.Kind)
		}
	}
	if info, ok := Lookup("relations.cascade_delete"); !ok || info.Kind != KindHTTP {
		t.Errorf("Lookup = %+v, %v", info, ok)
	}
	if Known("users.teleport") {
		t.Error("unexpected id")
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	props, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", data)
	}
	for _, field := range []string{"name", "categories", "checks"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing %q", field)
		}
	}
}
