package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

// Default is the profile used when none is selected.
const Default = "quick"

// Registry holds the available profiles by name.
type Registry struct {
	profiles map[string]*Profile
	builtin  map[string]bool
}

// NewRegistry creates a registry with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{
		profiles: make(map[string]*Profile),
		builtin:  make(map[string]bool),
	}
	r.loadBuiltinProfiles()
	return r
}

func (r *Registry) loadBuiltinProfiles() {
	entries, err := fs.ReadDir(builtinFS, "profiles")
	if err != nil {
		panic(fmt.Sprintf("reading embedded profiles: %v", err))
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile("profiles/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("reading embedded profile %s: %v", e.Name(), err))
		}
		profiles, err := Decode(data)
		if err != nil {
			panic(fmt.Sprintf("embedded profile %s: %v", e.Name(), err))
		}
		for _, p := range profiles {
			r.profiles[p.Name] = p
			r.builtin[p.Name] = true
		}
	}
}

// Decode parses YAML holding either one profile or a document of the form
// "profiles: [...]". Unknown fields are rejected.
func Decode(data []byte) ([]*Profile, error) {
	var multi struct {
		Profiles []*Profile `yaml:"profiles"`
	}
	if err := strictUnmarshal(data, &multi); err == nil && len(multi.Profiles) > 0 {
		return multi.Profiles, nil
	}

	var single Profile
	if err := strictUnmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decoding profile YAML: %w", err)
	}
	return []*Profile{&single}, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadFile adds the profiles in a YAML file. A profile with the same name as
// an existing one replaces it. Nothing is added unless every profile in the
// file is valid.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profiles file: %w", err)
	}
	profiles, err := Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, p := range profiles {
		r.profiles[p.Name] = p
		r.builtin[p.Name] = false
	}
	return nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProfile, name, r.Names())
	}
	return p, nil
}

// Builtin reports whether the named profile ships with the binary.
func (r *Registry) Builtin(name string) bool {
	return r.builtin[name]
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all profiles sorted by name.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, name := range r.Names() {
		out = append(out, r.profiles[name])
	}
	return out
}

// Validate checks every registered profile.
func (r *Registry) Validate() error {
	var errs []error
	for _, p := range r.List() {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Marshal renders a profile as YAML.
func Marshal(p *Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
