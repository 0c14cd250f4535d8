// Package config resolves the compiler's ambient configuration: environment
// variable overrides (via caarlos0/env) layered under an optional per-project
// YAML file, both layered under the command line's explicit flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Env holds the environment-variable-overridable settings, parsed with
// struct tags the way caarlos0/env expects.
type Env struct {
	IncludePath []string `env:"OCC_INCLUDE_PATH" envSeparator:":"`
	Assembler   string   `env:"OCC_ASSEMBLER" envDefault:"as"`
	Defines     []string `env:"OCC_DEFINE" envSeparator:","`
}

// ProjectFile is the optional `.occ.yaml` sitting next to an input file,
// supplying predefined macros and extra include directories without
// requiring them to be repeated on every invocation.
type ProjectFile struct {
	Defines     []string `yaml:"defines"`
	IncludeDirs []string `yaml:"include_dirs"`
}

// Load reads environment overrides and, if present, the `.occ.yaml` found in
// srcDir (the directory containing the file being compiled).
func Load(srcDir string) (Env, *ProjectFile, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, nil, err
	}

	path := filepath.Join(srcDir, ".occ.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil, nil
		}
		return e, nil, err
	}

	var pf ProjectFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return e, nil, err
	}
	return e, &pf, nil
}

// Merge folds env and an optional project file into a final include path and
// define list, with the project file's entries appended after the
// environment's (so under the last-wins handling of duplicate defines, a
// project-file define overrides an environment define of the same name).
func Merge(e Env, pf *ProjectFile) (includeDirs, defines []string) {
	includeDirs = append(includeDirs, e.IncludePath...)
	defines = append(defines, e.Defines...)
	if pf != nil {
		includeDirs = append(includeDirs, pf.IncludeDirs...)
		defines = append(defines, pf.Defines...)
	}
	return includeDirs, defines
}
