package script

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/modoterra/logtree/pkg/core"
)

func TestParseValidScript(t *testing.T) {
	yaml := `
version: 1
name: my-app
root: /var/www/my-app
vars:
  build: "${root}/build"
env:
  OUT: "${build}"
steps:
  - note: System check.
    steps:
      - note: Checking epoch date.
        steps:
          - run: [date, -d, "@0", --utc]
      - note: System check done.
  - cd: "${root}"
    steps:
      - run: [wc, -l, modules]
        dir: "${build}"
  - run: [env]
    env: {FOO: BAR}
    check: false
  - moan: Oops, error.
`
	s, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if s.Version != 1 {
		t.Errorf("version: got %d, want 1", s.Version)
	}
	if s.Name != "my-app" {
		t.Errorf("name: got %q", s.Name)
	}
	if len(s.Steps) != 4 {
		t.Errorf("steps count: got %d, want 4", len(s.Steps))
	}
	// Check interpolation
	if got := s.Vars["build"]; got != "/var/www/my-app/build" {
		t.Errorf("var interpolation: got %q", got)
	}
	if got := s.Env["OUT"]; got != "/var/www/my-app/build" {
		t.Errorf("env interpolation: got %q", got)
	}
	cd := s.Steps[1]
	if cd.Cd != "/var/www/my-app" {
		t.Errorf("cd interpolation: got %q", cd.Cd)
	}
	if cd.Steps[0].Dir != "/var/www/my-app/build" {
		t.Errorf("dir interpolation: got %q", cd.Steps[0].Dir)
	}
	if s.Steps[2].Checked() {
		t.Error("check: false was not decoded")
	}
	if !s.Steps[0].Steps[0].Steps[0].Checked() {
		t.Error("check must default to true")
	}
	errs := Validate(s)
	if len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("version: 1\nsteps:\n  - nope: x\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseTOML(t *testing.T) {
	data := `
version = 1
name = "tomlish"
root = "/srv"

[env]
GOFLAGS = "-mod=mod"

[[steps]]
note = "Build"

  [[steps.steps]]
  run = ["go", "build", "${root}/..."]

[[steps]]
shell = "echo $HOME"
check = false
`
	s, err := ParseTOML([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Steps) != 2 {
		t.Fatalf("steps: got %d, want 2", len(s.Steps))
	}
	if got := s.Steps[0].Steps[0].Run[2]; got != "/srv/..." {
		t.Errorf("run interpolation: got %q", got)
	}
	// Plain $VAR references belong to the shell.
	if got := s.Steps[1].Shell; got != "echo $HOME" {
		t.Errorf("shell: got %q", got)
	}
	if s.Steps[1].Checked() {
		t.Error("check = false was not decoded")
	}
	if errs := Validate(s); len(errs) != 0 {
		t.Errorf("validation errors: %v", errs)
	}
}

func TestParseTOMLRejectsUnknownFields(t *testing.T) {
	_, err := ParseTOML([]byte("version = 1\nbogus = true\n"))
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestInterpolationLeavesUnknownReferences(t *testing.T) {
	yaml := `
version: 1
name: app
root: /opt/${name}
steps:
  - shell: "echo ${HOME} ${name}"
  - cd: "${root}"
    steps:
      - note: done
`
	s, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	// Root itself is taken literally, references to it get that literal.
	if s.Steps[1].Cd != "/opt/${name}" {
		t.Errorf("cd: got %q", s.Steps[1].Cd)
	}
	if s.Steps[0].Shell != "echo ${HOME} app" {
		t.Errorf("shell: got %q", s.Steps[0].Shell)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	check := false
	s := &Script{
		Version: 1,
		Name:    "roundtrip",
		Env:     map[string]string{"A": "1"},
		Steps: []Step{
			{Note: "outer", Steps: []Step{{Run: []string{"echo", "hi"}, Check: &check}}},
			{Moan: "careful"},
		},
	}
	for _, name := range []string{"logtree.yaml", "logtree.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(s, path); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Name != "roundtrip" || len(got.Steps) != 2 {
				t.Fatalf("loaded %+v", got)
			}
			inner := got.Steps[0].Steps[0]
			if strings.Join(inner.Run, " ") != "echo hi" || inner.Checked() {
				t.Errorf("inner step: %+v", inner)
			}
			if got.Steps[1].Kind() != core.KindMoan {
				t.Errorf("kind: got %q", got.Steps[1].Kind())
			}
		})
	}
}

func TestStepKindAndLabel(t *testing.T) {
	tests := []struct {
		step  Step
		kind  core.Kind
		label string
	}{
		{Step{Note: "n"}, core.KindNote, "n"},
		{Step{Moan: "m"}, core.KindMoan, "m"},
		{Step{Cd: "/tmp"}, core.KindCd, "/tmp"},
		{Step{Run: []string{"ls", "-al"}}, core.KindRun, "ls -al"},
		{Step{Shell: "echo hi"}, core.KindShell, "echo hi"},
		{Step{}, "", ""},
	}
	for _, tt := range tests {
		if got := tt.step.Kind(); got != tt.kind {
			t.Errorf("Kind(%+v) = %q, want %q", tt.step, got, tt.kind)
		}
		if got := tt.step.Label(); got != tt.label {
			t.Errorf("Label(%+v) = %q, want %q", tt.step, got, tt.label)
		}
	}
}
