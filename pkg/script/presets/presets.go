package presets

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/modoterra/logtree/pkg/script"
)

// Generate creates a starter script for the project at root. Each recognised
// build system contributes a note with its usual commands, all nested under
// a single cd into ${root}. The script is returned as it would be written to
// disk: references are not yet interpolated.
func Generate(root string) (*script.Script, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve root")
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", absRoot)
	}

	var steps []script.Step
	for _, detect := range []func(string) (script.Step, bool, error){goModule, nodePackage, makefile} {
		st, ok, err := detect(absRoot)
		if err != nil {
			return nil, err
		}
		if ok {
			steps = append(steps, st)
		}
	}
	if len(steps) == 0 {
		return nil, errors.Newf("%s has no go.mod, package.json or Makefile", absRoot)
	}

	return &script.Script{
		Version: 1,
		Name:    filepath.Base(absRoot),
		Root:    absRoot,
		Steps: []script.Step{
			{Cd: "${root}", Steps: steps},
		},
	}, nil
}

func exists(root, name string) bool {
	_, err := os.Stat(filepath.Join(root, name))
	return err == nil
}

func goModule(root string) (script.Step, bool, error) {
	if !exists(root, "go.mod") {
		return script.Step{}, false, nil
	}
	return script.Step{
		Note: "Building Go module ${name}.",
		Steps: []script.Step{
			{Run: []string{"go", "mod", "download"}, Quiet: true},
			{Run: []string{"go", "vet", "./..."}},
			{Run: []string{"go", "test", "./..."}},
			{Run: []string{"go", "build", "./..."}},
		},
	}, true, nil
}

type packageJSON struct {
	Scripts map[string]string `json:"scripts"`
}

func nodePackage(root string) (script.Step, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if errors.Is(err, os.ErrNotExist) {
		return script.Step{}, false, nil
	}
	if err != nil {
		return script.Step{}, false, errors.Wrap(err, "read package.json")
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return script.Step{}, false, errors.Wrap(err, "parse package.json")
	}

	steps := []script.Step{{Run: []string{"npm", "ci"}}}
	if _, ok := pkg.Scripts["test"]; ok {
		steps = append(steps, script.Step{Run: []string{"npm", "test"}})
	}
	if _, ok := pkg.Scripts["build"]; ok {
		steps = append(steps, script.Step{Run: []string{"npm", "run", "build"}})
	}
	return script.Step{Note: "Building npm package.", Steps: steps}, true, nil
}

func makefile(root string) (script.Step, bool, error) {
	for _, name := range []string{"GNUmakefile", "makefile", "Makefile"} {
		if exists(root, name) {
			return script.Step{
				Note:  "Running make.",
				Steps: []script.Step{{Run: []string{"make"}}},
			}, true, nil
		}
	}
	return script.Step{}, false, nil
}
