package script

import (
	"strings"
	"testing"
)

func TestValidateVersionMustBe1(t *testing.T) {
	s := &Script{Version: 2, Steps: []Step{{Note: "x"}}}
	errs := Validate(s)
	assertHasError(t, errs, "version must be 1")
}

func TestValidateEmptySteps(t *testing.T) {
	s := &Script{Version: 1}
	errs := Validate(s)
	assertHasError(t, errs, "at least one step")
}

func TestValidateStepRequiresAction(t *testing.T) {
	s := &Script{Version: 1, Steps: []Step{{Note: "ok"}, {}}}
	errs := Validate(s)
	assertHasError(t, errs, "step 1: one of note, moan, cd, run or shell is required")
}

func TestValidateStepSingleAction(t *testing.T) {
	s := &Script{Version: 1, Steps: []Step{{Note: "x", Run: []string{"ls"}}}}
	errs := Validate(s)
	assertHasError(t, errs, "only one action is allowed, got note, run")
}

func TestValidateRunNotEmpty(t *testing.T) {
	s := &Script{Version: 1, Steps: []Step{{Run: []string{}}}}
	errs := Validate(s)
	assertHasError(t, errs, "command must not be empty")

	s = &Script{Version: 1, Steps: []Step{{Run: []string{"", "x"}}}}
	errs = Validate(s)
	assertHasError(t, errs, "program name must not be empty")
}

func TestValidateNestedStepsOnlyUnderSections(t *testing.T) {
	s := &Script{Version: 1, Steps: []Step{{Run: []string{"ls"}, Steps: []Step{{Note: "x"}}}}}
	errs := Validate(s)
	assertHasError(t, errs, "nested steps are only allowed")
}

func TestValidateRunOptionsOnSections(t *testing.T) {
	check := false
	s := &Script{Version: 1, Steps: []Step{{Note: "x", Check: &check}}}
	errs := Validate(s)
	assertHasError(t, errs, "only apply to run and shell")
}

func TestValidateReportsNestedPath(t *testing.T) {
	s := &Script{Version: 1, Steps: []Step{
		{Note: "a"},
		{Cd: "/tmp", Steps: []Step{{Note: "b"}, {Note: "c", Steps: []Step{{}}}}},
	}}
	errs := Validate(s)
	assertHasError(t, errs, "step 1.1.0:")
}

func TestValidateEnvNames(t *testing.T) {
	s := &Script{
		Version: 1,
		Env:     map[string]string{"BAD=NAME": "x"},
		Steps:   []Step{{Shell: "true", Env: map[string]string{"": "y"}}},
	}
	errs := Validate(s)
	assertHasError(t, errs, `script: invalid environment variable name "BAD=NAME"`)
	assertHasError(t, errs, `step 0: invalid environment variable name ""`)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := &Script{Version: 3, Steps: []Step{{}, {Run: []string{}}}}
	errs := Validate(s)
	if len(errs) != 3 {
		t.Errorf("errors: got %d, want 3: %v", len(errs), errs)
	}
}

func assertHasError(t *testing.T, errs []error, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return
		}
	}
	t.Errorf("expected error containing %q, got: %v", substr, errs)
}
