package chat

import (
	"fmt"
	"strings"

	"github.com/matsen/paperchat/internal/reference"
	"github.com/matsen/paperchat/internal/semantic"
)

const assistantIntro = "You are an AI assistant helping researchers understand arXiv papers."

// RAGContext builds the system message for a question answered from
// retrieved chunks. Chunks appear in the order given.
func RAGContext(paper reference.Paper, chunks []semantic.ChunkResult) string {
	var b strings.Builder
	b.WriteString(assistantIntro + "\n\n")
	b.WriteString("Paper Information:\n")
	fmt.Fprintf(&b, "Title: %s\n", paper.Title)
	fmt.Fprintf(&b, "Authors: %s\n", reference.AuthorNames(paper.Authors, "Unknown"))
	fmt.Fprintf(&b, "arXiv ID: %s\n\n", paper.ID)
	fmt.Fprintf(&b, "Abstract: %s\n\n", paper.Abstract)
	b.WriteString("Relevant sections from the full paper:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[Section %d - Page %d]\n%s\n", i+1, c.PageNumber, c.Text)
	}
	b.WriteString("\nUse the above context to answer questions. If information is not in the provided context, say so.")
	return b.String()
}

// AbstractContext builds the system message used when no full-text chunks
// are available.
func AbstractContext(paper reference.Paper) string {
	var b strings.Builder
	b.WriteString(assistantIntro + "\n")
	b.WriteString("You have access to the following paper:\n")
	fmt.Fprintf(&b, "Title: %s\n", paper.Title)
	fmt.Fprintf(&b, "arXiv ID: %s\n", paper.ID)
	fmt.Fprintf(&b, "Abstract: %s\n\n", paper.Abstract)
	b.WriteString("Please provide helpful, accurate, and concise responses about this paper. ")
	b.WriteString("You can explain concepts, summarize sections, clarify methodology, or answer any questions about the research.")
	return b.String()
}

// generalContext is the system message for prompts that carry their own paper text.
const generalContext = assistantIntro + " Use markdown formatting for better readability."

func summaryPrompt(paper reference.Paper) string {
	return fmt.Sprintf(`Please provide a concise summary of this paper:

Title: %s
Authors: %s
Abstract: %s

Provide a 2-3 paragraph summary that highlights the key contributions and findings.`,
		paper.Title, reference.AuthorNames(paper.Authors, "Unknown"), paper.Abstract)
}

func keywordsPrompt(paper reference.Paper) string {
	return fmt.Sprintf(`Extract 5-8 relevant keywords/tags for this paper:

Title: %s
Abstract: %s

Return only the keywords as a comma-separated list.`, paper.Title, paper.Abstract)
}

// ParseKeywords splits a comma-separated model reply into trimmed keywords.
func ParseKeywords(reply string) []string {
	var out []string
	for _, k := range strings.Split(reply, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
