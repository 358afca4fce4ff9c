package pdf

import (
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"

	"github.com/achahar/rss2pdf/internal/extract"
	"github.com/achahar/rss2pdf/internal/feed"
	"github.com/achahar/rss2pdf/internal/resolve"
)

// ErrWriteFailed marks a filesystem or permission error writing the output
// document.
var ErrWriteFailed = errors.New("pdf write failed")

// Spec is the output document descriptor: the title page summary plus the
// ordered rendered sections. Produced once, written once, immutable after
// creation.
type Spec struct {
	FeedTitle   string
	Description string
	SourceURL   string
	GeneratedAt time.Time
	EntryCount  int
	// Notice is the body of the title page when there are no sections.
	Notice   string
	Sections []Section
}

// Section is one rendered entry.
type Section struct {
	Title string
	// Meta holds the author/date lines; absent fields are simply absent.
	Meta   []string
	Blocks []extract.Block
	Images []extract.Image
	// Note is an inline remark shown when the entry used a degraded source.
	Note       string
	SourceLink string
}

const emptyNotice = "No articles found in this feed."
const extractionPlaceholder = "Content could not be extracted."

// Compose lays out feed metadata and resolved entries into a Spec. It is
// pure: all formatting decisions happen here, Write only draws.
func Compose(src *feed.Source, items []resolve.Resolved, now time.Time) *Spec {
	spec := &Spec{
		FeedTitle:   src.Title,
		Description: src.Description,
		SourceURL:   src.URL,
		GeneratedAt: now,
		EntryCount:  len(items),
	}
	if len(items) == 0 {
		spec.Notice = emptyNotice
		return spec
	}
	for _, item := range items {
		spec.Sections = append(spec.Sections, composeSection(item))
	}
	return spec
}

func composeSection(item resolve.Resolved) Section {
	sec := Section{
		Title:      item.Entry.Title,
		Blocks:     item.Blocks,
		Images:     item.Images,
		SourceLink: item.Entry.Link,
	}
	if item.Entry.Author != "" {
		sec.Meta = append(sec.Meta, "By "+item.Entry.Author)
	}
	if item.Entry.Published != nil {
		sec.Meta = append(sec.Meta, item.Entry.Published.Format("January 2, 2006"))
	}
	if item.Source == resolve.SourceFallbackEmpty {
		sec.Blocks = []extract.Block{{Kind: extract.BlockParagraph, Text: extractionPlaceholder}}
	}
	sec.Note = item.Note
	return sec
}

// Layout constants: 1-inch margins on Letter pages, black on white.
const marginMM = 25.4

// Builder writes a Spec to a single PDF file.
type Builder struct {
	OutputPath string
}

// Build composes and writes in one step.
func (b *Builder) Build(src *feed.Source, items []resolve.Resolved) error {
	return b.Write(Compose(src, items, time.Now()))
}

// Write renders the Spec and flushes the complete document once.
func (b *Builder) Write(spec *Spec) error {
	doc := gofpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(marginMM, marginMM, marginMM)
	doc.SetAutoPageBreak(true, marginMM)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	b.titlePage(doc, tr, spec)
	for _, sec := range spec.Sections {
		doc.AddPage()
		b.section(doc, tr, sec)
	}

	if err := doc.OutputFileAndClose(b.OutputPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, b.OutputPath, err)
	}
	log.Info().Str("path", b.OutputPath).Int("articles", len(spec.Sections)).Msg("pdf written")
	return nil
}

func (b *Builder) titlePage(doc *gofpdf.Fpdf, tr func(string) string, spec *Spec) {
	doc.AddPage()
	doc.Ln(20)
	doc.SetFont("Helvetica", "B", 24)
	doc.MultiCell(0, 10, tr(spec.FeedTitle), "", "C", false)
	doc.Ln(8)

	doc.SetFont("Helvetica", "", 11)
	if spec.Description != "" {
		doc.MultiCell(0, 5, tr(spec.Description), "", "C", false)
		doc.Ln(6)
	}
	doc.MultiCell(0, 5, tr("Source: "+spec.SourceURL), "", "L", false)
	doc.MultiCell(0, 5, "Generated: "+spec.GeneratedAt.Format("2006-01-02 15:04"), "", "L", false)
	doc.MultiCell(0, 5, fmt.Sprintf("Articles: %d", spec.EntryCount), "", "L", false)

	if spec.Notice != "" {
		doc.Ln(12)
		doc.SetFont("Helvetica", "I", 12)
		doc.MultiCell(0, 6, tr(spec.Notice), "", "C", false)
	}
}

func (b *Builder) section(doc *gofpdf.Fpdf, tr func(string) string, sec Section) {
	doc.SetFont("Helvetica", "B", 18)
	doc.MultiCell(0, 8, tr(sec.Title), "", "L", false)
	doc.Ln(2)

	doc.SetFont("Helvetica", "", 11)
	for _, line := range sec.Meta {
		doc.MultiCell(0, 5, tr(line), "", "L", false)
	}
	if len(sec.Meta) > 0 {
		doc.Ln(3)
	}

	for _, blk := range sec.Blocks {
		b.block(doc, tr, blk)
	}

	for _, img := range sec.Images {
		if img.Alt == "" {
			continue
		}
		doc.Ln(2)
		doc.SetFont("Helvetica", "I", 10)
		doc.MultiCell(0, 5, tr("[Image: "+img.Alt+"]"), "", "C", false)
	}

	if sec.Note != "" {
		doc.Ln(3)
		doc.SetFont("Helvetica", "I", 10)
		doc.MultiCell(0, 5, tr("Note: "+sec.Note), "", "L", false)
	}

	if sec.SourceLink != "" {
		doc.Ln(4)
		doc.SetFont("Helvetica", "", 10)
		doc.WriteLinkString(5, tr("Source: "+sec.SourceLink), sec.SourceLink)
		doc.Ln(5)
	}
}

func (b *Builder) block(doc *gofpdf.Fpdf, tr func(string) string, blk extract.Block) {
	switch blk.Kind {
	case extract.BlockHeading:
		doc.SetFont("Helvetica", "B", 14)
		doc.MultiCell(0, 7, tr(blk.Text), "", "L", false)
	case extract.BlockSubheading:
		doc.SetFont("Helvetica", "B", 12)
		doc.MultiCell(0, 6, tr(blk.Text), "", "L", false)
	case extract.BlockList:
		doc.SetFont("Helvetica", "", 12)
		doc.SetLeftMargin(marginMM + 5)
		doc.MultiCell(0, 6, tr("- "+blk.Text), "", "L", false)
		doc.SetLeftMargin(marginMM)
	case extract.BlockQuote:
		doc.SetFont("Helvetica", "I", 11)
		doc.SetLeftMargin(marginMM + 8)
		doc.SetRightMargin(marginMM + 8)
		doc.MultiCell(0, 5, tr(blk.Text), "", "J", false)
		doc.SetLeftMargin(marginMM)
		doc.SetRightMargin(marginMM)
	case extract.BlockCode:
		doc.SetFont("Courier", "", 10)
		doc.SetLeftMargin(marginMM + 5)
		doc.MultiCell(0, 4.5, tr(blk.Text), "", "L", false)
		doc.SetLeftMargin(marginMM)
	default:
		// Body prose reflows justified.
		doc.SetFont("Helvetica", "", 12)
		doc.MultiCell(0, 6, tr(blk.Text), "", "J", false)
	}
	doc.Ln(2)
}
