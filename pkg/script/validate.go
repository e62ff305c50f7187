package script

import (
	"fmt"
	"slices"
	"strings"

	"github.com/modoterra/logtree/pkg/core"
)

// Validate checks the script for structural correctness.
func Validate(s *Script) []error {
	var errs []error

	if s.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", s.Version))
	}

	if len(s.Steps) == 0 {
		errs = append(errs, fmt.Errorf("script must define at least one step"))
	}

	errs = append(errs, validateEnv("script", s.Env)...)
	errs = append(errs, validateSteps(s.Steps, nil)...)
	return errs
}

func validateSteps(steps []Step, path []int) []error {
	var errs []error
	for i, st := range steps {
		p := append(slices.Clone(path), i)
		id := "step " + core.StepID(p...)

		kinds := st.Kinds()
		switch len(kinds) {
		case 0:
			errs = append(errs, fmt.Errorf("%s: one of note, moan, cd, run or shell is required", id))
			continue
		case 1:
		default:
			names := make([]string, len(kinds))
			for j, k := range kinds {
				names[j] = string(k)
			}
			errs = append(errs, fmt.Errorf("%s: only one action is allowed, got %s", id, strings.Join(names, ", ")))
			continue
		}

		switch kinds[0] {
		case core.KindNote, core.KindMoan, core.KindCd:
			if st.Dir != "" || len(st.Env) > 0 || st.Check != nil || st.Quiet {
				errs = append(errs, fmt.Errorf("%s (%s): dir, env, check and quiet only apply to run and shell", id, kinds[0]))
			}
			errs = append(errs, validateSteps(st.Steps, p)...)
		case core.KindRun, core.KindShell:
			if len(st.Steps) > 0 {
				errs = append(errs, fmt.Errorf("%s (%s): nested steps are only allowed under note, moan or cd", id, kinds[0]))
			}
			if kinds[0] == core.KindRun {
				if len(st.Run) == 0 {
					errs = append(errs, fmt.Errorf("%s (run): command must not be empty", id))
				} else if st.Run[0] == "" {
					errs = append(errs, fmt.Errorf("%s (run): program name must not be empty", id))
				}
			}
			errs = append(errs, validateEnv(id, st.Env)...)
		}
	}
	return errs
}

func validateEnv(owner string, env map[string]string) []error {
	var errs []error
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			errs = append(errs, fmt.Errorf("%s: invalid environment variable name %q", owner, k))
		}
	}
	return errs
}
