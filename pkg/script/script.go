package script

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/modoterra/logtree/pkg/core"
)

// Script represents a logtree script file.
type Script struct {
	Version int               `yaml:"version"        toml:"version"        json:"version"`
	Name    string            `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Root    string            `yaml:"root,omitempty" toml:"root,omitempty" json:"root,omitempty"`
	Vars    map[string]string `yaml:"vars,omitempty" toml:"vars,omitempty" json:"vars,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"  toml:"env,omitempty"  json:"env,omitempty"` // added to every command
	Steps   []Step            `yaml:"steps"          toml:"steps"          json:"steps"`
}

// Step is one action. Exactly one of Note, Moan, Cd, Run and Shell is set.
type Step struct {
	Note  string            `yaml:"note,omitempty"  toml:"note,omitempty"  json:"note,omitempty"`
	Moan  string            `yaml:"moan,omitempty"  toml:"moan,omitempty"  json:"moan,omitempty"`
	Cd    string            `yaml:"cd,omitempty"    toml:"cd,omitempty"    json:"cd,omitempty"`
	Run   []string          `yaml:"run,omitempty"   toml:"run,omitempty"   json:"run,omitempty"`
	Shell string            `yaml:"shell,omitempty" toml:"shell,omitempty" json:"shell,omitempty"` // run with sh -c
	Dir   string            `yaml:"dir,omitempty"   toml:"dir,omitempty"   json:"dir,omitempty"`   // run, shell
	Env   map[string]string `yaml:"env,omitempty"   toml:"env,omitempty"   json:"env,omitempty"`   // run, shell
	Check *bool             `yaml:"check,omitempty" toml:"check,omitempty" json:"check,omitempty"` // run, shell: default true
	Quiet bool              `yaml:"quiet,omitempty" toml:"quiet,omitempty" json:"quiet,omitempty"` // run, shell
	Steps []Step            `yaml:"steps,omitempty" toml:"steps,omitempty" json:"steps,omitempty"` // note, moan, cd
}

// Kinds returns every action set on the step, in declaration order.
func (s Step) Kinds() []core.Kind {
	var kinds []core.Kind
	if s.Note != "" {
		kinds = append(kinds, core.KindNote)
	}
	if s.Moan != "" {
		kinds = append(kinds, core.KindMoan)
	}
	if s.Cd != "" {
		kinds = append(kinds, core.KindCd)
	}
	if s.Run != nil {
		kinds = append(kinds, core.KindRun)
	}
	if s.Shell != "" {
		kinds = append(kinds, core.KindShell)
	}
	return kinds
}

// Kind returns the step's action, or "" if none is set.
func (s Step) Kind() core.Kind {
	if kinds := s.Kinds(); len(kinds) > 0 {
		return kinds[0]
	}
	return ""
}

// Label returns the text shown for the step.
func (s Step) Label() string {
	switch s.Kind() {
	case core.KindNote:
		return s.Note
	case core.KindMoan:
		return s.Moan
	case core.KindCd:
		return s.Cd
	case core.KindRun:
		return strings.Join(s.Run, " ")
	case core.KindShell:
		return s.Shell
	}
	return ""
}

// Checked reports whether a non-zero exit fails the script.
func (s Step) Checked() bool {
	return s.Check == nil || *s.Check
}

// Parse decodes a YAML script and interpolates its variables.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "parse script")
	}
	s.interpolate()
	return &s, nil
}

// ParseTOML decodes a TOML script and interpolates its variables.
func ParseTOML(data []byte) (*Script, error) {
	var s Script
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, errors.Wrap(err, "parse script")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("parse script: unknown field %q", undecoded[0].String())
	}
	s.interpolate()
	return &s, nil
}

// Load reads a script from path. Files ending in .toml are TOML, everything
// else is YAML.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	if isTOML(path) {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Save writes s to path in the format its extension names.
func Save(s *Script, path string) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return errors.Wrap(err, "encode script")
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "encode script")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "encode script")
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write script")
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// interpolate replaces ${name}, ${root} and ${var} references. Root and name
// are taken literally; vars may refer to them. Unknown references are left
// alone so the shell or the command still sees them.
func (s *Script) interpolate() {
	base := map[string]string{"name": s.Name, "root": s.Root}
	expand := func(vars map[string]string, v string) string {
		return varPattern.ReplaceAllStringFunc(v, func(m string) string {
			if val, ok := vars[m[2:len(m)-1]]; ok {
				return val
			}
			return m
		})
	}

	vars := make(map[string]string, len(base)+len(s.Vars))
	for k, v := range s.Vars {
		vars[k] = expand(base, v)
	}
	for k, v := range base {
		vars[k] = v
	}
	for k := range s.Vars {
		s.Vars[k] = vars[k]
	}

	for k, v := range s.Env {
		s.Env[k] = expand(vars, v)
	}
	interpolateSteps(s.Steps, func(v string) string { return expand(vars, v) })
}

func interpolateSteps(steps []Step, expand func(string) string) {
	for i := range steps {
		st := &steps[i]
		st.Note = expand(st.Note)
		st.Moan = expand(st.Moan)
		st.Cd = expand(st.Cd)
		st.Shell = expand(st.Shell)
		st.Dir = expand(st.Dir)
		for j := range st.Run {
			st.Run[j] = expand(st.Run[j])
		}
		for k, v := range st.Env {
			st.Env[k] = expand(v)
		}
		interpolateSteps(st.Steps, expand)
	}
}
