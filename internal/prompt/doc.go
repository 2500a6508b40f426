// Package prompt renders the text sent to the model: placeholder
// substitution, two-stage prompt composition, and a YAML library of named
// experiments.
//
// # Templates
//
// Templates are plain strings with {name} placeholders. [Substitute] replaces
// each placeholder with its bound value in a single pass; "{{" and "}}"
// escape literal braces, and inserted values are never rescanned, so a SQL
// fragment or JSON example inside a value cannot trigger further
// substitution. Referencing an unbound placeholder fails with
// [ErrMissingVariable] naming every missing placeholder.
//
// # Two-stage composition
//
// [Builder] composes the final prompt in two stages. The system-instructions
// template is resolved first against the accumulated variables. The result is
// bound as {system_instructions} and a framing template is rendered around
// it. Framing carries the chat-turn delimiters a model expects when it is
// driven through raw generation; [Framing] resolves a preset name ("plain",
// "chatml", "zephyr", "instruct") or accepts a literal template.
//
//	b := prompt.NewBuilder(exp.SystemTemplate, framing)
//	b.AddVariables(map[string]string{
//	    prompt.VarSchema:   schema.Roster().DescribeWithExamples(),
//	    prompt.VarQuestion: "Who is the tallest player?",
//	})
//	text, err := b.BuildPrompt()
//
// # Experiments
//
// A [Library] is a YAML file of named [Experiment] configurations, each
// pairing a system template with an optional framing. [DefaultLibrary]
// returns the experiments embedded in the binary; [LoadLibrary] reads a
// user-supplied file.
package prompt
