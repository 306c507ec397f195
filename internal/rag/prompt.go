package rag

import (
	"strings"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
)

// BuildPrompt grounds the question in the retrieved chunks. The instruction
// block tells the model to answer only from the supplied context so answers
// stay tied to the uploaded course material.
func BuildPrompt(query string, chunks []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are a helpful study assistant. Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say that you could not find it in the course material.\n\n")
	b.WriteString("CONTEXT:\n")
	if len(chunks) == 0 {
		b.WriteString("(no relevant material found)\n")
	}
	for _, c := range chunks {
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nANSWER:")
	return b.String()
}
