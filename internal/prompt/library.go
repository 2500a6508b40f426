package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Experiment is one named prompt configuration in a library. Research runs
// vary these while holding the dataset and model fixed, so the name ends up
// in every result record.
type Experiment struct {
	// Name identifies the experiment. Unique within a library.
	Name string `yaml:"name"`

	// Description says what the prompt variant is probing.
	Description string `yaml:"description,omitempty"`

	// SystemTemplate is the system-instructions template. The bundled
	// templates reference {schema} and, for structured output,
	// {format_instructions}.
	SystemTemplate string `yaml:"system_template"`

	// Framing selects the framing template: a preset name or a literal
	// template. Empty defers to the caller's configuration.
	Framing string `yaml:"framing,omitempty"`
}

// NewBuilder returns a [Builder] for the experiment. A non-empty
// framingOverride takes precedence over the experiment's own framing.
func (e Experiment) NewBuilder(framingOverride string) (*Builder, error) {
	selector := e.Framing
	if framingOverride != "" {
		selector = framingOverride
	}
	framing, err := Framing(selector)
	if err != nil {
		return nil, fmt.Errorf("experiment %q: %w", e.Name, err)
	}
	return NewBuilder(e.SystemTemplate, framing), nil
}

// Variables returns the sorted placeholder names the experiment's system
// template references.
func (e Experiment) Variables() []string {
	return Placeholders(e.SystemTemplate)
}

// Library is a collection of experiments loaded from a YAML file.
type Library struct {
	experiments map[string]Experiment
}

type libraryFile struct {
	Experiments []Experiment `yaml:"experiments"`
}

// LoadLibrary reads a YAML experiment library from disk.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt library: %w", err)
	}
	return ParseLibrary(path, data)
}

// ParseLibrary parses YAML experiment definitions. source names the origin in
// error messages.
func ParseLibrary(source string, data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompt library %s: %w", source, err)
	}
	if len(file.Experiments) == 0 {
		return nil, fmt.Errorf("prompt library %s defines no experiments", source)
	}

	lib := &Library{experiments: make(map[string]Experiment, len(file.Experiments))}
	for _, exp := range file.Experiments {
		exp.Name = strings.TrimSpace(exp.Name)
		if exp.Name == "" {
			return nil, fmt.Errorf("prompt library %s: experiment with empty name", source)
		}
		if strings.TrimSpace(exp.SystemTemplate) == "" {
			return nil, fmt.Errorf("prompt library %s: experiment %q has no system_template", source, exp.Name)
		}
		if _, dup := lib.experiments[exp.Name]; dup {
			return nil, fmt.Errorf("prompt library %s: duplicate experiment %q", source, exp.Name)
		}
		lib.experiments[exp.Name] = exp
	}
	return lib, nil
}

// Get returns the named experiment.
func (l *Library) Get(name string) (Experiment, error) {
	exp, ok := l.experiments[strings.TrimSpace(name)]
	if !ok {
		return Experiment{}, fmt.Errorf("unknown experiment %q (available: %s)", name, strings.Join(l.Names(), ", "))
	}
	return exp, nil
}

// Names returns the sorted experiment names.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.experiments))
	for name := range l.experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
