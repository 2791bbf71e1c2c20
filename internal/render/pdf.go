package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"

	"conspect/internal/config"
	"conspect/internal/services"
)

const (
	fontFamily = "doc"

	titleSize    = 20.0
	bodySize     = 11.0
	lineHeight   = 6.0
	titleGap     = 10.0
	headingGap   = 4.0
	spacerGap    = 3.0
	bulletIndent = 6.0
)

// headingSize maps a heading level to its point size. Level 1 and 2 render
// the same so a summary that opens with a single top-level heading does not
// dwarf the document title.
func headingSize(level int) float64 {
	switch level {
	case 1, 2:
		return 16
	case 3:
		return 14
	default:
		return 12
	}
}

// Renderer writes summary text into an A4 PDF document. Fonts must cover
// Cyrillic, so they are registered from TTF files rather than the built-in
// Latin-1 core set.
type Renderer struct {
	fontPath     string
	boldFontPath string
}

// NewRenderer constructs a renderer using the configured font files.
func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		fontPath:     cfg.PDF.FontPath,
		boldFontPath: cfg.PDF.BoldFontPath,
	}
}

// Render writes the titled summary to outputPath as a PDF.
func (r *Renderer) Render(title, body, outputPath string) error {
	for _, fontPath := range []string{r.fontPath, r.boldFontPath} {
		if _, err := os.Stat(fontPath); err != nil {
			return services.Wrap(services.ErrRender, "render", "fonts",
				fmt.Sprintf("font file %q is not readable", fontPath), err)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddUTF8Font(fontFamily, "", r.fontPath)
	pdf.AddUTF8Font(fontFamily, "B", r.boldFontPath)
	pdf.AddUTF8Font(fontFamily, "I", r.fontPath)
	pdf.AddUTF8Font(fontFamily, "BI", r.boldFontPath)
	pdf.AddPage()

	title = strings.TrimSpace(title)
	if title != "" {
		pdf.SetFont(fontFamily, "B", titleSize)
		pdf.MultiCell(0, 9, title, "", "C", false)
		pdf.Ln(titleGap)
	}

	for _, block := range Parse(body) {
		writeBlock(pdf, block)
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return services.Wrap(services.ErrRender, "render", "write pdf", "could not write document", err)
	}
	return nil
}

func writeBlock(pdf *fpdf.Fpdf, block Block) {
	switch block.Kind {
	case BlockSpacer:
		pdf.Ln(spacerGap)
	case BlockHeading:
		pdf.Ln(headingGap)
		pdf.SetFont(fontFamily, "B", headingSize(block.Level))
		pdf.MultiCell(0, 8, block.PlainText(), "", "L", false)
		pdf.Ln(2)
	case BlockBullet:
		pdf.SetFont(fontFamily, "", bodySize)
		pdf.SetX(pdf.GetX() + bulletIndent)
		pdf.Write(lineHeight, "• ")
		writeSpans(pdf, block.Spans)
		pdf.Ln(lineHeight)
	case BlockNumbered:
		pdf.SetFont(fontFamily, "", bodySize)
		pdf.SetX(pdf.GetX() + bulletIndent)
		pdf.Write(lineHeight, block.Number+". ")
		writeSpans(pdf, block.Spans)
		pdf.Ln(lineHeight)
	default:
		writeSpans(pdf, block.Spans)
		pdf.Ln(lineHeight)
	}
}

func writeSpans(pdf *fpdf.Fpdf, spans []Span) {
	for _, span := range spans {
		style := ""
		if span.Bold {
			style += "B"
		}
		if span.Italic {
			style += "I"
		}
		pdf.SetFont(fontFamily, style, bodySize)
		pdf.Write(lineHeight, span.Text)
	}
}
