// Package parser turns raw model responses into validated results.
//
// The structured [Parser] enforces a JSON response contract: it locates a
// JSON object in the response text, decodes it, and checks every declared
// field is present as a non-empty string. [ExtractSQL] is the looser
// alternative that pulls the first SELECT statement out of free-form text.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// FieldQuery is the field name the SQL pipeline reads from parsed results.
const FieldQuery = "query"

// Field declares one required entry in the structured payload a model must
// produce. Every declared field is validated as a present, non-empty string.
type Field struct {
	// Name is the JSON key.
	Name string

	// Description tells the model what belongs under the key. It is rendered
	// into the format instructions verbatim.
	Description string
}

// DefaultFields returns the field list the SQL translation pipeline uses: a
// single required "query" field.
func DefaultFields() []Field {
	return []Field{
		{Name: FieldQuery, Description: "SQL query answering the user's question."},
	}
}

// ErrMalformedOutput is returned by [Parser.Parse] when the response carries
// no decodable JSON object or the object violates the declared contract.
var ErrMalformedOutput = errors.New("parser: malformed model output")

// Parser validates model responses against a declared field list.
type Parser struct {
	fields []Field
}

// New creates a Parser for the given fields. With no fields any JSON object
// is accepted; the SQL pipeline passes [DefaultFields].
func New(fields ...Field) *Parser {
	return &Parser{fields: fields}
}

// FormatInstructions renders the response contract as prompt text. The model
// is told to reply with a fenced JSON object holding exactly the declared
// keys, one line per field with its description as a trailing comment.
func (p *Parser) FormatInstructions() string {
	var b strings.Builder
	b.WriteString("Respond with a JSON object in a markdown code block, ")
	b.WriteString("including the leading and trailing \"```json\" and \"```\" markers:\n\n")
	b.WriteString("```json\n{\n")
	for i, f := range p.fields {
		b.WriteString("\t\"")
		b.WriteString(f.Name)
		b.WriteString("\": string")
		if i < len(p.fields)-1 {
			b.WriteString(",")
		}
		if f.Description != "" {
			b.WriteString("  // ")
			b.WriteString(f.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n```\n\n")
	b.WriteString("Every key is required and every value must be a non-empty string.")
	return b.String()
}

// Result is a validated structured payload. Results are only produced by
// [Parser.Parse], so every declared field is present and non-empty.
type Result struct {
	values map[string]string
}

// Get returns the value of a field, or "" if the field was not declared.
func (r *Result) Get(name string) string {
	return r.values[name]
}

// Query returns the canonical "query" field.
func (r *Result) Query() string {
	return r.values[FieldQuery]
}

// Parse locates a JSON object in raw, decodes it, and validates it against
// the declared fields. The payload may sit inside a markdown code fence or be
// embedded in surrounding prose. Any failure is reported as
// [ErrMalformedOutput] with a detail describing the stage that rejected the
// response; the raw text is never partially salvaged.
func (p *Parser) Parse(raw string) (*Result, error) {
	candidates := payloadCandidates(raw)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no JSON object found in %q", ErrMalformedOutput, snippet(raw))
	}

	var (
		decoded   map[string]any
		decodeErr error
	)
	for i, candidate := range candidates {
		var payload map[string]any
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			if i == 0 {
				decodeErr = decodeError(candidate, err)
			}
			continue
		}
		decoded = payload
		decodeErr = nil
		break
	}
	if decoded == nil {
		if decodeErr != nil {
			return nil, decodeErr
		}
		return nil, fmt.Errorf("%w: no decodable JSON object in %q", ErrMalformedOutput, snippet(raw))
	}

	values := make(map[string]string, len(p.fields))
	for _, f := range p.fields {
		v, present := decoded[f.Name]
		if !present {
			return nil, fmt.Errorf("%w: required field %q is missing", ErrMalformedOutput, f.Name)
		}
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%w: field %q must be a string, got %T", ErrMalformedOutput, f.Name, v)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: field %q is empty", ErrMalformedOutput, f.Name)
		}
		values[f.Name] = s
	}

	return &Result{values: values}, nil
}

// fencedJSON matches the first markdown code fence, with or without a
// language tag, capturing its body.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// payloadCandidates returns substrings of raw that may hold the JSON payload,
// most specific first: a fenced code block, the whole trimmed text, then the
// first balanced brace region.
func payloadCandidates(raw string) []string {
	var candidates []string

	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			candidates = append(candidates, body)
		}
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		candidates = append(candidates, trimmed)
	}

	if region := balancedObject(raw); region != "" {
		candidates = append(candidates, region)
	}

	return candidates
}

// balancedObject returns the first balanced {...} region in s, tracking
// string literals and escapes so braces inside values do not end the region.
// Returns "" when no balanced region exists.
func balancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeError wraps a JSON decode failure. When the payload becomes valid
// after mechanical repair the detail says so; the response is still rejected,
// the diagnosis only tells prompt authors what kind of damage the model did.
func decodeError(payload string, err error) error {
	if repaired, rerr := jsonrepair.RepairJSON(payload); rerr == nil {
		var probe map[string]any
		if json.Unmarshal([]byte(repaired), &probe) == nil {
			return fmt.Errorf("%w: invalid JSON (%v); payload parses after repair, the model likely emitted trailing commas or unquoted keys", ErrMalformedOutput, err)
		}
	}
	return fmt.Errorf("%w: invalid JSON: %v", ErrMalformedOutput, err)
}

// snippet shortens raw text for error messages.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
