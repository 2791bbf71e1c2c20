package render

import (
	"reflect"
	"testing"
)

func TestParseHeadingsBulletsAndParagraphs(t *testing.T) {
	text := "# Конспект\n\n## Тема первая\n- пункт один\n* пункт два\n• пункт три\n1. шаг\n12. другой шаг\n\nОбычный абзац."

	blocks := Parse(text)
	kinds := make([]BlockKind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	want := []BlockKind{
		BlockHeading, BlockSpacer, BlockHeading,
		BlockBullet, BlockBullet, BlockBullet,
		BlockNumbered, BlockNumbered,
		BlockSpacer, BlockParagraph,
	}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected block kinds: %v", kinds)
	}

	if blocks[0].Level != 1 || blocks[0].PlainText() != "Конспект" {
		t.Fatalf("unexpected first heading: %+v", blocks[0])
	}
	if blocks[2].Level != 2 {
		t.Fatalf("unexpected heading level: %+v", blocks[2])
	}
	if blocks[6].Number != "1" || blocks[7].Number != "12" {
		t.Fatalf("unexpected list numbers: %q, %q", blocks[6].Number, blocks[7].Number)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	text := "## Тема\n- **важный** пункт\n\nАбзац с *курсивом*."
	first := Parse(text)
	second := Parse(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse is not deterministic")
	}
}

func TestParseInlineEmphasis(t *testing.T) {
	blocks := Parse("Это **жирный** и *курсив* текст.")
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	want := []Span{
		{Text: "Это "},
		{Text: "жирный", Bold: true},
		{Text: " и "},
		{Text: "курсив", Italic: true},
		{Text: " текст."},
	}
	if !reflect.DeepEqual(blocks[0].Spans, want) {
		t.Fatalf("unexpected spans: %+v", blocks[0].Spans)
	}
}

func TestParseHashWithoutSpaceIsParagraph(t *testing.T) {
	blocks := Parse("#хэштег не заголовок")
	if len(blocks) != 1 || blocks[0].Kind != BlockParagraph {
		t.Fatalf("expected a paragraph, got %+v", blocks)
	}
}

func TestParseCollapsesBlankRuns(t *testing.T) {
	blocks := Parse("строка\n\n\n\nдругая")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[1].Kind != BlockSpacer {
		t.Fatalf("middle block should be a spacer")
	}
}

func TestHeadingSizesCapTopLevel(t *testing.T) {
	if headingSize(1) != headingSize(2) {
		t.Fatalf("level 1 and 2 headings should render at the same size")
	}
	if headingSize(3) <= headingSize(4) {
		t.Fatalf("heading sizes should decrease with depth")
	}
}
