package services

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const (
	contextSlot  = "context"
	questionSlot = "input"
)

// medicalAssistantPrompt keeps the model grounded in the retrieved passages and fixes
// the Answer / Evidence / Disclaimer layout of every reply.
const medicalAssistantPrompt = `You are a helpful medical assistant. Use ONLY the information provided in the CONTEXT to answer the user's QUESTION.

Rules:
1) If the answer is not present in the CONTEXT, say: "I don't know based on the provided documents."
2) Do NOT make up facts, numbers, drug dosages, or diagnoses.
3) Keep the answer clear and concise.
4) If the user asks for medical advice/treatment, add a short safety note: "Please consult a qualified doctor for medical advice."

Return format:
- Answer: <your answer>
- Evidence: <1-3 short bullet points quoting or referencing the context>
- Disclaimer: <one line medical disclaimer>

CONTEXT:
{context}

QUESTION:
{input}

Now respond following the Return format exactly.
`

// PromptTemplate renders the grounded question-answering prompt.
// Slot values are inserted verbatim.
type PromptTemplate struct {
	tmpl prompts.PromptTemplate
}

// NewPromptTemplate returns the medical assistant template with its context
// and question slots.
func NewPromptTemplate() PromptTemplate {
	tmpl := prompts.NewPromptTemplate(medicalAssistantPrompt, []string{contextSlot, questionSlot})
	tmpl.TemplateFormat = prompts.TemplateFormatFString
	return PromptTemplate{tmpl: tmpl}
}

// FormatPrompt fills both slots and returns the structured prompt value handed to
// the language model adapter.
func (p PromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	for _, slot := range p.tmpl.InputVariables {
		if _, ok := values[slot]; !ok {
			return nil, fmt.Errorf("%w: prompt slot %q has no value", ErrConfiguration, slot)
		}
	}
	value, err := p.tmpl.FormatPrompt(values)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering prompt: %v", ErrConfiguration, err)
	}
	return value, nil
}

// Render is FormatPrompt for the common case of plain strings.
func (p PromptTemplate) Render(context, question string) (string, error) {
	value, err := p.FormatPrompt(map[string]any{contextSlot: context, questionSlot: question})
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
