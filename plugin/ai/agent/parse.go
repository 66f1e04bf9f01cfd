package agent

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one headed part of a markdown answer.
type Section struct {
	Heading string   `json:"heading"`
	Body    string   `json:"body,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// CodeBlock is one fenced code block.
type CodeBlock struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

var markdown = goldmark.New()

// parseMarkdown splits raw into sections at headings. Content before the
// first heading forms a section with an empty heading. Fenced code blocks
// are collected separately.
func parseMarkdown(raw string) ([]Section, []CodeBlock) {
	src := []byte(raw)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var sections []Section
	var blocks []CodeBlock
	current := Section{}
	var paragraphs []string

	flush := func() {
		current.Body = strings.Join(paragraphs, "\n\n")
		if current.Heading != "" || current.Body != "" || len(current.Items) > 0 {
			sections = append(sections, current)
		}
		paragraphs = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			current = Section{Heading: nodeText(node, src)}
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if t := nodeText(item, src); t != "" {
					current.Items = append(current.Items, t)
				}
			}
		case *ast.FencedCodeBlock:
			blocks = append(blocks, CodeBlock{
				Language: string(node.Language(src)),
				Code:     strings.TrimRight(blockLines(node, src), "\n"),
			})
		case *ast.CodeBlock:
			blocks = append(blocks, CodeBlock{Code: strings.TrimRight(blockLines(node, src), "\n")})
		case *ast.ThematicBreak:
		default:
			if t := nodeText(node, src); t != "" {
				paragraphs = append(paragraphs, t)
			}
		}
	}
	flush()
	return sections, blocks
}

// nodeText returns the plain text of n with inline markup removed.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.Paragraph, *ast.TextBlock:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// findSection returns the first section whose heading contains one of names.
func findSection(sections []Section, names ...string) *Section {
	for i := range sections {
		heading := strings.ToLower(sections[i].Heading)
		for _, name := range names {
			if strings.Contains(heading, name) {
				return &sections[i]
			}
		}
	}
	return nil
}

// sectionText returns the body of a section followed by its items, one per line.
func sectionText(s *Section) string {
	if s == nil {
		return ""
	}
	parts := []string{}
	if s.Body != "" {
		parts = append(parts, s.Body)
	}
	parts = append(parts, s.Items...)
	return strings.Join(parts, "\n")
}

var (
	headingLine  = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.*)$`)
	integerValue = regexp.MustCompile(`\d+`)
	numberedLine = regexp.MustCompile(`(?m)^\s*(?:#+\s*)?\d+[.)]\s+`)
	boldMarker   = regexp.MustCompile(`\*\*|__`)
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// rawSection returns the markdown under the first heading containing one of
// names, up to the next heading of the same or a higher level. Lines starting
// with "#" inside fenced code are treated as headings.
func rawSection(raw string, names ...string) string {
	locs := headingLine.FindAllStringSubmatchIndex(raw, -1)
	for i, loc := range locs {
		heading := strings.ToLower(raw[loc[4]:loc[5]])
		if !slices.ContainsFunc(names, func(name string) bool { return strings.Contains(heading, name) }) {
			continue
		}
		level := loc[3] - loc[2]
		end := len(raw)
		for _, next := range locs[i+1:] {
			if next[3]-next[2] <= level {
				end = next[0]
				break
			}
		}
		return strings.TrimSpace(raw[loc[1]:end])
	}
	return ""
}

// numberedBlocks splits raw at lines starting with "1." or "1)". Each block
// keeps its continuation lines. Text before the first number is dropped.
func numberedBlocks(raw string) []string {
	starts := numberedLine.FindAllStringIndex(raw, -1)
	blocks := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if block := strings.TrimSpace(raw[loc[1]:end]); block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// labelled returns the value of the first "Label: value" line for any of labels.
// Markdown emphasis and list markers around the label are tolerated.
func labelled(raw string, labels ...string) string {
	for _, label := range labels {
		re := regexp.MustCompile(`(?im)^[\s>*#-]*` + regexp.QuoteMeta(label) + `[\s*_]*:[\s*_]*(.+)$`)
		if m := re.FindStringSubmatch(raw); m != nil {
			if v := cleanInline(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstLine returns the first non-empty line of raw without markup.
func firstLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if v := cleanInline(line); v != "" {
			return v
		}
	}
	return ""
}

// splitList splits a comma or semicolon separated value.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := cleanInline(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseYear returns the first four digit year in value, or 0.
func parseYear(value string) int {
	m := yearPattern.FindString(value)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}

func cleanInline(s string) string {
	s = boldMarker.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#-*> ")
	return strings.TrimSpace(s)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
