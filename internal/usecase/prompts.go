package usecase

import (
	"fmt"
	"strings"
)

// BuildGradePrompt renders the fixed judge template for one document. The
// judge must answer with a strict one-key JSON verdict so the grader can
// decode it without heuristics.
func BuildGradePrompt(question, document string) string {
	var sb strings.Builder
	sb.WriteString("You are a grader assessing relevance of a retrieved document to a user question.\n\n")
	sb.WriteString("Here is the retrieved document:\n")
	sb.WriteString(document)
	sb.WriteString("\n\nHere is the user question:\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString("If the document directly addresses what the question is asking for, grade it as relevant.\n")
	sb.WriteString("Give a binary score 'yes' or 'no' to indicate whether the document is relevant to the question.\n\n")
	sb.WriteString("Provide the score as a JSON with a single key 'score' and no other text or explanation.\n\n")
	sb.WriteString("Example response:\n{\"score\": \"yes\"}\n\nYour response:")
	return sb.String()
}

// BuildAnswerPrompt renders the generation template combining the question
// with the assembled context.
func BuildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(`You are an assistant for question-answering tasks.
Use the following pieces of retrieved context to answer the question comprehensively and clearly.
If you don't know the answer, just say that you don't know.

INSTRUCTIONS:
- Provide a detailed and informative answer (4-6 sentences)
- Be clear and precise in your explanation
- Only use facts from the context; do not invent details

Question: %s

Context: %s

Answer:`, question, context)
}
