package services

import "fmt"

// Output is the closed set of shapes the last pipeline stage can produce.
type Output interface {
	isOutput()
}

// PipelineResult is what the RAG pipeline itself returns.
type PipelineResult struct {
	Answer string `json:"answer"`
}

// TextOutput is a bare generated string.
type TextOutput string

// StructuredOutput is a keyed record such as {"result": "..."}.
type StructuredOutput map[string]any

func (PipelineResult) isOutput()   {}
func (TextOutput) isOutput()       {}
func (StructuredOutput) isOutput() {}

// answerKeys are tried in order when the output is a keyed record.
var answerKeys = []string{"answer", "result", "output_text"}

// NormalizeAnswer extracts displayable text from any pipeline output. It never
// panics; values it does not recognise are rendered with %v.
func NormalizeAnswer(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case PipelineResult:
		return v.Answer
	case *PipelineResult:
		if v == nil {
			return ""
		}
		return v.Answer
	case TextOutput:
		return string(v)
	case string:
		return v
	case StructuredOutput:
		return fromRecord(map[string]any(v))
	case map[string]any:
		return fromRecord(v)
	case map[string]string:
		for _, key := range answerKeys {
			if s, ok := v[key]; ok {
				return s
			}
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// fromRecord only accepts string values under the known keys.
func fromRecord(record map[string]any) string {
	for _, key := range answerKeys {
		if s, ok := record[key].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", record)
}
