package agent

import (
	"fmt"
	"strings"
)

const generateInstruction = `You are a research assistant. Using the context below and your own knowledge,
write a clear, well-structured answer to the question. Cite facts from the
context where they apply. If neither the context nor your knowledge is enough
to answer, reply exactly: "I don't know."`

const transformInstruction = `Rewrite the question below as a short keyword query suitable for a web search
engine. Respond with a JSON object of the form {"query": "..."} and nothing else.`

func buildGeneratePrompt(q Query, contextBlock string) string {
	var b strings.Builder
	b.WriteString(generateInstruction)
	b.WriteString("\n\n")

	if name := strings.TrimSpace(q.Name); name != "" {
		fmt.Fprintf(&b, "Address the reader as %s.\n\n", name)
	}

	b.WriteString("Context:\n")
	if contextBlock == "" {
		b.WriteString("No additional context provided. Answer based on your internal knowledge.\n")
	} else {
		b.WriteString(contextBlock)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", strings.TrimSpace(q.Question))
	return b.String()
}

func buildTransformPrompt(question string) string {
	return fmt.Sprintf("%s\n\nQuestion: %s", transformInstruction, strings.TrimSpace(question))
}
