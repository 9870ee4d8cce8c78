package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const contextSeparator = "\n\n---\n\n"

// Grounded is the structured two-field output requested from the model for
// session queries.
type Grounded struct {
	Answer    string `json:"answer"`
	Rationale string `json:"rationale"`
}

// GroundedPrompt asks for an answer plus rationale as a raw JSON object,
// constrained to the supplied chunks.
func GroundedPrompt(question string, chunks []string) string {
	return fmt.Sprintf(`Context:
%s

Question: %q
Based ONLY on the context provided, perform two tasks:
1. Answer the question.
2. Provide a brief rationale explaining how you arrived at the answer.
Respond with a single, raw JSON object with two keys: "answer" and "rationale". Do not include any markdown or other text.`,
		strings.Join(chunks, contextSeparator), question)
}

// PlainPrompt asks for a direct plain-text answer, constrained to the
// supplied chunks. Used by the stateless evaluation path.
func PlainPrompt(question string, chunks []string) string {
	return fmt.Sprintf(`Based ONLY on the context provided below, give a direct and concise answer to the user's question.
Do not use any Markdown formatting. Return only the plain text answer.

Context:
---
%s
---

Question: %s

Answer:`, strings.Join(chunks, contextSeparator), question)
}

// ParseGrounded extracts the {"answer","rationale"} object from raw model
// output, tolerating a markdown code fence around it. The second return
// value reports whether parsing succeeded; callers fall back to the raw text
// when it did not.
func ParseGrounded(raw string) (Grounded, bool) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	var out Grounded
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Grounded{}, false
	}
	if out.Answer == "" {
		return Grounded{}, false
	}
	return out, true
}
