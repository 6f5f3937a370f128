package rag

import "strings"

// FallbackAnswer is the sentence the model must use when the context does
// not hold the answer.
const FallbackAnswer = "Your document(s) do not provide an answer to this question."

// DegradedAnswer replaces the answer when the completion provider fails.
const DegradedAnswer = "The assistant could not answer right now. Please try again later."

const groundedInstruction = "You are an intelligent assistant that answers questions only based on the provided context from the note document. " +
	"Do not use prior knowledge. If the note document context does not contain enough information to answer the question, reply exactly: \"" +
	FallbackAnswer + "\""

const chatInstruction = "You are a helpful assistant."

// UserMessage renders the context and question into the user turn.
func (p Prompt) UserMessage() string {
	if p.Chat {
		return p.Question
	}
	var b strings.Builder
	b.WriteString("Document Context:\n")
	b.WriteString(p.Context)
	b.WriteString("\n---\nQuestion:\n")
	b.WriteString(p.Question)
	return b.String()
}
