package story

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"agenthub/internal/domain"
)

// Parser extracts metadata and heading-delimited sections from an issue
// body using goldmark's markdown AST.
type Parser struct {
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewParser builds a parser with the default goldmark configuration.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{md: goldmark.New(), logger: logger}
}

// Parse turns an issue into its structured form. Sections are delimited
// by headings of any level; content before the first heading is dropped.
func (p *Parser) Parse(issue Issue) (parsed ParsedIssue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewDomainError("story.Parse", domain.ErrParseFailure,
				fmt.Sprintf("failed to parse issue %s#%d: %v", issue.Repository, issue.Number, r))
		}
	}()

	meta := Metadata{
		Title:      issue.Title,
		Labels:     append([]string(nil), issue.Labels...),
		Repository: issue.Repository,
	}

	sections := p.parseSections(issue.Body)
	p.logger.Debug("parsed issue body", "repository", issue.Repository, "number", issue.Number, "sections", len(sections))

	return ParsedIssue{Metadata: meta, Body: issue.Body, Sections: sections}, nil
}

func (p *Parser) parseSections(body string) []Section {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	source := []byte(body)
	doc := p.md.Parser().Parse(text.NewReader(source))

	ex := &sectionExtractor{source: source}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		ex.visit(node)
	}
	return ex.finish()
}

// sectionExtractor accumulates block content under the most recent heading.
type sectionExtractor struct {
	source   []byte
	sections []Section
	heading  string
	active   bool
	content  strings.Builder
}

func (ex *sectionExtractor) visit(node ast.Node) {
	switch n := node.(type) {
	case *ast.Heading:
		ex.flush()
		ex.heading = inlineText(n, ex.source)
		ex.active = true
	case *ast.Paragraph:
		ex.appendBlock(inlineText(n, ex.source))
	case *ast.List:
		ex.appendBlock(listText(n, ex.source))
	case *ast.FencedCodeBlock:
		ex.appendBlock("```\n" + blockLiteral(n, ex.source) + "```")
	case *ast.CodeBlock:
		ex.appendBlock("```\n" + blockLiteral(n, ex.source) + "```")
	}
}

func (ex *sectionExtractor) appendBlock(text string) {
	if !ex.active || text == "" {
		return
	}
	if ex.content.Len() > 0 {
		ex.content.WriteString("\n\n")
	}
	ex.content.WriteString(text)
}

func (ex *sectionExtractor) flush() {
	if ex.active {
		ex.sections = append(ex.sections, Section{
			Heading: ex.heading,
			Content: strings.TrimSpace(ex.content.String()),
		})
		ex.content.Reset()
	}
}

func (ex *sectionExtractor) finish() []Section {
	ex.flush()
	return ex.sections
}

// inlineText renders the inline content of a node, wrapping code spans
// in backticks.
func inlineText(node ast.Node, source []byte) string {
	var b strings.Builder
	collectInline(node, source, &b)
	return strings.TrimSpace(b.String())
}

func collectInline(node ast.Node, source []byte, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		return
	case *ast.String:
		b.Write(n.Value)
		return
	case *ast.CodeSpan:
		b.WriteString("`")
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			collectInline(child, source, b)
		}
		b.WriteString("`")
		return
	}
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		collectInline(child, source, b)
	}
}

// listText renders list items one per line so downstream analysis can
// treat each item as a candidate requirement.
func listText(list *ast.List, source []byte) string {
	var lines []string
	ordinal := list.Start
	if ordinal == 0 {
		ordinal = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		text := inlineText(item, source)
		if text == "" {
			continue
		}
		if list.IsOrdered() {
			lines = append(lines, fmt.Sprintf("%d. %s", ordinal, text))
			ordinal++
		} else {
			lines = append(lines, "- "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func blockLiteral(node ast.Node, source []byte) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
