package render

import (
	"strings"
)

// BlockKind identifies a structural element of summary text.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockNumbered
	BlockSpacer
)

// Span is a run of text with a single style.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// Block is one structural element: a heading with its level, a list item, a
// paragraph, or a spacer for a blank line.
type Block struct {
	Kind   BlockKind
	Level  int
	Number string
	Spans  []Span
}

// Parse splits summary text into structural blocks using the plain markdown
// grammar the summarizer produces: #-prefixed headings, -/*/• bullets,
// "1."-style numbered items, **bold** and *italic* emphasis. Parsing is
// line-oriented and deterministic; the same input always yields the same
// block sequence.
func Parse(text string) []Block {
	var blocks []Block
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(blocks) > 0 && blocks[len(blocks)-1].Kind != BlockSpacer {
				blocks = append(blocks, Block{Kind: BlockSpacer})
			}
			continue
		}
		blocks = append(blocks, parseLine(trimmed))
	}
	// Trailing spacers carry no content.
	for len(blocks) > 0 && blocks[len(blocks)-1].Kind == BlockSpacer {
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}

func parseLine(line string) Block {
	if level, rest, ok := parseHeading(line); ok {
		return Block{Kind: BlockHeading, Level: level, Spans: parseSpans(rest)}
	}
	if rest, ok := parseBullet(line); ok {
		return Block{Kind: BlockBullet, Spans: parseSpans(rest)}
	}
	if number, rest, ok := parseNumbered(line); ok {
		return Block{Kind: BlockNumbered, Number: number, Spans: parseSpans(rest)}
	}
	return Block{Kind: BlockParagraph, Spans: parseSpans(line)}
}

func parseHeading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 4 {
		return 0, "", false
	}
	rest := line[level:]
	if rest == "" || rest[0] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(rest), true
}

func parseBullet(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

func parseNumbered(line string) (string, string, bool) {
	dot := strings.Index(line, ". ")
	if dot <= 0 || dot > 3 {
		return "", "", false
	}
	for _, r := range line[:dot] {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return line[:dot], strings.TrimSpace(line[dot+2:]), true
}

// parseSpans splits a line into styled runs. ** toggles bold and * toggles
// italic; unterminated markers are emitted literally by closing the style at
// end of line.
func parseSpans(line string) []Span {
	var spans []Span
	var buf strings.Builder
	bold, italic := false, false

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		spans = append(spans, Span{Text: buf.String(), Bold: bold, Italic: italic})
		buf.Reset()
	}

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '*' {
			if i+1 < len(runes) && runes[i+1] == '*' {
				flush()
				bold = !bold
				i++
				continue
			}
			flush()
			italic = !italic
			continue
		}
		buf.WriteRune(runes[i])
	}
	flush()
	return spans
}

// PlainText flattens a block's spans without styling, for logs and tests.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, span := range b.Spans {
		sb.WriteString(span.Text)
	}
	return sb.String()
}
