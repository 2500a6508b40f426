package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Framing templates wrap the resolved system instructions and the user
// question in the chat-turn delimiters a model was trained on. Raw generation
// bypasses the server-side chat template, so the prompt text itself has to
// carry the delimiters.
const (
	// FramingPlain concatenates instructions and question with no
	// delimiters. Suitable for base completion models.
	FramingPlain = "{system_instructions}\n\n{question}\n"

	// FramingChatML uses the ChatML delimiters shared by Qwen and most
	// OpenAI-compatible fine-tunes.
	FramingChatML = "<|im_start|>system\n{system_instructions}<|im_end|>\n<|im_start|>user\n{question}<|im_end|>\n<|im_start|>assistant\n"

	// FramingZephyr uses the Zephyr and TinyLlama delimiters.
	FramingZephyr = "<|system|>\n{system_instructions}</s>\n<|user|>\n{question}</s>\n<|assistant|>\n"

	// FramingInstruct uses the Llama 2 and Mistral [INST] delimiters.
	FramingInstruct = "<s>[INST] {system_instructions}\n\n{question} [/INST]"
)

// DefaultFraming is used when neither the experiment nor the configuration
// names one.
const DefaultFraming = "zephyr"

var framings = map[string]string{
	"plain":    FramingPlain,
	"chatml":   FramingChatML,
	"zephyr":   FramingZephyr,
	"instruct": FramingInstruct,
}

// Framing resolves a framing selector to a template. A preset name maps to
// its built-in template, a string containing a brace is taken as a literal
// template, and an empty selector means [DefaultFraming]. Anything else is an
// error.
func Framing(selector string) (string, error) {
	if selector == "" {
		selector = DefaultFraming
	}
	if tmpl, ok := framings[strings.ToLower(selector)]; ok {
		return tmpl, nil
	}
	if strings.Contains(selector, "{") {
		return selector, nil
	}
	return "", fmt.Errorf("unknown framing %q (presets: %s)", selector, strings.Join(FramingNames(), ", "))
}

// FramingNames returns the sorted built-in preset names.
func FramingNames() []string {
	names := make([]string, 0, len(framings))
	for name := range framings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
