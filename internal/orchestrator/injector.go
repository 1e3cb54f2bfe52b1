package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codecache-ai/codecache/internal/snippets"
)

// DefaultSnippetLimit bounds the snippets folded into a retrieval context.
const DefaultSnippetLimit = 5

const preambleHeader = "You are CodeCache AI, an intelligent programming assistant.\n\nAvailable Snippets:\n"

const preambleGuidelines = `Guidelines:
1. Provide clear, concise explanations
2. Share code examples when relevant
3. Reference available snippets when appropriate
4. Follow best practices and security guidelines
5. Ask for clarification if needed
6. You are supposed to perform RAG on the available snippets and your knowledge base is limited to the available snippets.
7. If you are not sure about the answer, just say that you don't know. Don't try to make up an answer.
`

const userMessagePrefix = "User's message: "

// SnippetSource lists a user's reference snippets.
type SnippetSource interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]snippets.Snippet, error)
}

// Injector wraps the first user message of a conversation in a retrieval
// preamble built from the user's snippets.
type Injector struct {
	source SnippetSource
	limit  int
}

func NewInjector(source SnippetSource, limit int) *Injector {
	if limit <= 0 {
		limit = DefaultSnippetLimit
	}
	return &Injector{source: source, limit: limit}
}

// BuildOutgoing returns the text to send to the model for this turn. After
// the first turn rawText passes through untouched and no snippets are read.
// A failed snippet lookup degrades to an empty snippet block.
func (i *Injector) BuildOutgoing(ctx context.Context, userID, rawText string, isFirstTurn bool) string {
	if !isFirstTurn {
		return rawText
	}

	var found []snippets.Snippet
	if i.source != nil {
		var err error
		found, err = i.source.ListByUser(ctx, userID, i.limit)
		if err != nil {
			slog.Warn("injector: listing snippets, continuing without context",
				"user_id", userID,
				"error", err,
			)
			found = nil
		}
	}
	if len(found) > i.limit {
		found = found[:i.limit]
	}

	slog.Debug("injector: built retrieval context", "user_id", userID, "snippets", len(found))
	return BuildPreamble(FormatSnippets(found), rawText)
}

// FormatSnippets renders one "<title>: <description>" line per snippet.
func FormatSnippets(list []snippets.Snippet) string {
	lines := make([]string, 0, len(list))
	for _, s := range list {
		lines = append(lines, s.Title+": "+s.Description)
	}
	return strings.Join(lines, "\n")
}

// BuildPreamble assembles the first-turn instruction text. rawText is
// always the suffix.
func BuildPreamble(snippetBlock, rawText string) string {
	var b strings.Builder
	b.Grow(len(preambleHeader) + len(snippetBlock) + len(preambleGuidelines) + len(userMessagePrefix) + len(rawText) + 2)
	b.WriteString(preambleHeader)
	b.WriteString(snippetBlock)
	b.WriteString("\n\n")
	b.WriteString(preambleGuidelines)
	b.WriteString(userMessagePrefix)
	b.WriteString(rawText)
	return b.String()
}
