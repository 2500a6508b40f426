package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Well-known variable names bound by the commands. Substitution accepts any
// map key as a placeholder name; these are the ones the bundled templates
// rely on.
const (
	// VarSchema carries the rendered table description.
	VarSchema = "schema"

	// VarQuestion carries the user's natural language question.
	VarQuestion = "question"

	// VarFormatInstructions carries the parser's output-format contract.
	VarFormatInstructions = "format_instructions"

	// VarSystemInstructions is bound by [Builder.BuildPrompt] to the resolved
	// system-instructions text before the framing template is rendered. A
	// caller-supplied value under this name is overwritten.
	VarSystemInstructions = "system_instructions"
)

// ErrMissingVariable is returned by [Substitute] and [Builder.BuildPrompt]
// when a template references placeholders that have no bound value.
var ErrMissingVariable = errors.New("prompt: missing variable")

// missingVariables wraps [ErrMissingVariable] with every unbound placeholder name.
func missingVariables(names []string) error {
	return fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(names, ", "))
}

// Substitute renders a template by replacing each {name} placeholder with its
// value from vars. Doubled braces are escapes: "{{" renders as "{" and "}}"
// as "}". Substitution is a single pass over the template; values are
// inserted verbatim and never rescanned, so braces inside a value are inert.
//
// Placeholder names consist of letters, digits, and underscores. Brace
// sequences that do not form a placeholder pass through unchanged. Variables
// that no placeholder references are ignored. If any referenced placeholder
// has no value, Substitute returns [ErrMissingVariable] naming every unbound
// placeholder, not just the first.
func Substitute(tmpl string, vars map[string]string) (string, error) {
	var (
		b       strings.Builder
		missing []string
		seen    map[string]struct{}
	)
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			name, end := scanPlaceholder(tmpl, i)
			if end < 0 {
				b.WriteByte('{')
				i++
				continue
			}
			value, bound := vars[name]
			if !bound {
				if seen == nil {
					seen = make(map[string]struct{})
				}
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					missing = append(missing, name)
				}
			}
			b.WriteString(value)
			i = end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i += 2
			} else {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", missingVariables(missing)
	}
	return b.String(), nil
}

// Placeholders returns the sorted set of placeholder names a template
// references, honoring the same escape rules as [Substitute].
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]struct{})

	for i := 0; i < len(tmpl); {
		if tmpl[i] != '{' {
			i++
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			i += 2
			continue
		}
		name, end := scanPlaceholder(tmpl, i)
		if end < 0 {
			i++
			continue
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		i = end + 1
	}

	sort.Strings(names)
	return names
}

// scanPlaceholder reads a placeholder starting at the '{' at index start. It
// returns the placeholder name and the index of the closing '}', or end == -1
// when the sequence is not a well-formed placeholder.
func scanPlaceholder(tmpl string, start int) (name string, end int) {
	i := start + 1
	for i < len(tmpl) && isNameByte(tmpl[i]) {
		i++
	}
	if i == start+1 || i >= len(tmpl) || tmpl[i] != '}' {
		return "", -1
	}
	return tmpl[start+1 : i], i
}

func isNameByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// Builder accumulates template variables and renders the final prompt text in
// two stages: the system-instructions template is resolved first, then
// injected into the framing template as {system_instructions}.
//
// A Builder is cheap to construct; build a fresh one per request rather than
// sharing one across goroutines.
type Builder struct {
	systemTemplate string
	framing        string
	vars           map[string]string
}

// NewBuilder returns a Builder over the given system-instructions template
// and framing template. The framing template wraps the resolved system
// instructions and the user question in model-specific chat-turn delimiters;
// see [Framing] for the built-in presets.
func NewBuilder(systemTemplate, framing string) *Builder {
	return &Builder{
		systemTemplate: systemTemplate,
		framing:        framing,
		vars:           make(map[string]string),
	}
}

// AddVariables merges vars into the accumulated variable set. A later value
// under an already-bound name overrides the earlier one. Nil and empty maps
// are no-ops.
func (b *Builder) AddVariables(vars map[string]string) {
	for name, value := range vars {
		b.vars[name] = value
	}
}

// BuildPrompt renders the final prompt text. The system-instructions template
// is resolved against the accumulated variables, the result is bound as
// {system_instructions}, and the framing template is rendered against the
// extended set. Building does not mutate the Builder, so repeated calls with
// the same variables return identical text.
func (b *Builder) BuildPrompt() (string, error) {
	system, err := Substitute(b.systemTemplate, b.vars)
	if err != nil {
		return "", fmt.Errorf("system instructions: %w", err)
	}

	merged := make(map[string]string, len(b.vars)+1)
	for name, value := range b.vars {
		merged[name] = value
	}
	merged[VarSystemInstructions] = system

	text, err := Substitute(b.framing, merged)
	if err != nil {
		return "", fmt.Errorf("framing: %w", err)
	}
	return text, nil
}
