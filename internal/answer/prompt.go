package answer

import (
	"fmt"
	"strings"
)

const SystemPrompt = `You are a helpful AI assistant. Your task is to answer the user's question based ONLY on the provided context.
Do not use any external knowledge.
If the context does not contain the answer, state that you cannot answer based on the provided information.`

// NoDocumentsMessage is returned when retrieval finds nothing.
const NoDocumentsMessage = "Could not find any relevant documents in the database to answer the question."

// ContextPassage is one retrieved document as shown to the model.
type ContextPassage struct {
	FileName string
	Text     string
}

// BuildContext renders passages in retrieval order.
func BuildContext(passages []ContextPassage) string {
	var sb strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&sb, "Source (File: %s):\n%s\n---\n", p.FileName, p.Text)
	}
	return sb.String()
}

// BuildUserPrompt combines the context block and the question.
func BuildUserPrompt(contextStr, question string) string {
	return fmt.Sprintf("Context:\n%s\nQuestion: %s", contextStr, question)
}

// AppendCitations adds the "Files Referred" list to an answer.
func AppendCitations(answer string, urls []string) string {
	if len(urls) == 0 {
		return answer
	}
	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString("\n\n**Files Referred:**\n")
	for i, u := range urls {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(u)
	}
	return sb.String()
}
