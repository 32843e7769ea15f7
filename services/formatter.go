package services

import (
	"strings"

	"github.com/tmc/langchaingo/schema"
)

const passageSeparator = "\n\n"

// FormatDocuments joins retrieved passage texts, in retrieval order, with a blank line.
func FormatDocuments(docs []schema.Document) string {
	if len(docs) == 0 {
		return ""
	}
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.PageContent)
	}
	return strings.Join(texts, passageSeparator)
}
