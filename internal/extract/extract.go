package extract

import (
	"bytes"
	htmlesc "html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// BlockKind classifies a content block for layout purposes.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockSubheading
	BlockList
	BlockQuote
	BlockCode
)

// Block is one unit of normalized prose.
type Block struct {
	Kind BlockKind
	Text string
}

// Image is an embedded content image with its alt text.
type Image struct {
	URL string
	Alt string
}

// Document is the normalized result of extracting a page's main content.
type Document struct {
	Title  string
	Blocks []Block
	Images []Image
	// Selector records which strategy produced the content, empty when the
	// whole-body fallback was used.
	Selector string
	// LowConfidence is set when no strategy met the length threshold and the
	// stripped page body was returned as a last resort.
	LowConfidence bool
}

// Text joins all block texts with blank lines between them.
func (d Document) Text() string {
	return joinBlocks(d.Blocks)
}

// Chars counts the content characters across blocks.
func (d Document) Chars() int {
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Text)
	}
	return n
}

// DefaultMinChars is the minimum extracted length for a strategy match to
// be trusted as the main content region.
const DefaultMinChars = 500

// strategies is the ordered list of main-content candidates. First match
// meeting the length threshold wins; ties are broken by list position, not
// content length, so results are stable across runs.
var strategies = []string{
	"article",
	".post-content",
	".entry-content",
	"main",
	".content",
	".post-body",
	".main-content",
	"#content",
	".article-content",
	".post",
	".entry",
	".blog-post",
	"#primary",
}

// noiseSelector matches elements that never contain article prose.
const noiseSelector = "script, style, noscript, iframe, embed, object, form, nav, header, footer, aside"

// chromeSelector matches containers marked as navigation, ads, social
// widgets, or comments by class or id.
const chromeSelector = "[class*='sidebar'], [id*='sidebar'], [class*='navigation'], [class*='menu'], " +
	"[class*='advert'], [class*='ad-'], [class*='social'], [class*='share'], " +
	"[class*='comment'], [id*='comment'], [class*='related'], [class*='promo']"

// Extractor locates the main content region of a page using the ordered
// strategy list. The zero value uses DefaultMinChars.
type Extractor struct {
	MinChars int
}

func (e Extractor) minChars() int {
	if e.MinChars > 0 {
		return e.MinChars
	}
	return DefaultMinChars
}

// FromHTML extracts main content with the default threshold.
func FromHTML(input []byte) Document {
	return Extractor{}.Extract(input)
}

// Extract parses raw HTML and returns the best candidate content region as
// normalized blocks. Extraction is deterministic: identical input yields an
// identical Document.
func (e Extractor) Extract(input []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{Blocks: stripTagsBlocks(string(input)), LowConfidence: true}
	}

	title := pageTitle(doc)
	doc.Find(noiseSelector).Remove()
	doc.Find(chromeSelector).Remove()

	for _, sel := range strategies {
		region := doc.Find(sel).First()
		if region.Length() == 0 {
			continue
		}
		blocks := flatten(region)
		if charCount(blocks) >= e.minChars() {
			return Document{
				Title:    title,
				Blocks:   blocks,
				Images:   collectImages(region),
				Selector: sel,
			}
		}
	}

	// Last resort: the stripped page body.
	body := doc.Find("body").First()
	blocks := flatten(body)
	if len(blocks) == 0 {
		blocks = stripTagsBlocks(string(input))
	}
	return Document{
		Title:         title,
		Blocks:        blocks,
		Images:        collectImages(body),
		LowConfidence: true,
	}
}

// FromFragment normalizes an HTML fragment, such as inline feed content,
// into blocks. Plain text input passes through as paragraphs.
func FromFragment(fragment string) []Block {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return nil
	}
	if !strings.Contains(trimmed, "<") {
		return textBlocks(htmlesc.UnescapeString(trimmed))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return stripTagsBlocks(trimmed)
	}
	doc.Find(noiseSelector).Remove()
	blocks := flatten(doc.Find("body").First())
	if len(blocks) == 0 {
		blocks = stripTagsBlocks(trimmed)
	}
	return blocks
}

// FragmentImages collects content images from an HTML fragment.
func FragmentImages(fragment string) []Image {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	return collectImages(doc.Selection)
}

const blockElements = "h1, h2, h3, h4, h5, h6, p, li, blockquote, pre"

// flatten walks the region in document order and emits one Block per
// outermost block-level element.
func flatten(region *goquery.Selection) []Block {
	var blocks []Block
	region.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (a p inside a blockquote) are covered by the outermost one.
		if s.ParentsUntilSelection(region).Is(blockElements) {
			return
		}
		kind := kindOf(goquery.NodeName(s))
		text := blockText(s, kind == BlockCode)
		if text == "" {
			return
		}
		blocks = append(blocks, Block{Kind: kind, Text: text})
	})
	if len(blocks) == 0 {
		// Bare text with no block markup.
		blocks = textBlocks(strings.TrimSpace(region.Text()))
	}
	return blocks
}

func kindOf(tag string) BlockKind {
	switch tag {
	case "h1", "h2":
		return BlockHeading
	case "h3", "h4", "h5", "h6":
		return BlockSubheading
	case "li":
		return BlockList
	case "blockquote":
		return BlockQuote
	case "pre":
		return BlockCode
	default:
		return BlockParagraph
	}
}

// blockText collects the text of a block element. Outside pre blocks,
// whitespace runs collapse to single spaces.
func blockText(s *goquery.Selection, pre bool) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(&b, n, pre)
	}
	if pre {
		return strings.Trim(b.String(), "\n")
	}
	return collapseSpaces(strings.TrimSpace(b.String()))
}

func collectText(b *strings.Builder, n *html.Node, pre bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			return
		case "br":
			b.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, pre)
	}
}

// pageTitle prefers the title tag, then og:title, then the first h1.
func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return collapseSpaces(t)
	}
	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return collapseSpaces(t)
		}
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return collapseSpaces(t)
	}
	return ""
}

// imageSkipPatterns marks images that are chrome rather than content:
// avatars, icons, tracking pixels.
var imageSkipPatterns = []string{
	"avatar", "profile", "gravatar", "icon", "logo", "badge",
	"emoji", "sprite", "pixel", "spacer", "1x1",
}

func collectImages(region *goquery.Selection) []Image {
	var images []Image
	seen := map[string]struct{}{}
	region.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		src = strings.TrimSpace(src)
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return
		}
		if isChromeImage(src, alt) {
			return
		}
		key := imageKey(src)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		images = append(images, Image{URL: src, Alt: strings.TrimSpace(alt)})
	})
	return images
}

func isChromeImage(src, alt string) bool {
	srcLower := strings.ToLower(src)
	altLower := strings.ToLower(alt)
	for _, p := range imageSkipPatterns {
		if strings.Contains(srcLower, p) || strings.Contains(altLower, p) {
			return true
		}
	}
	return false
}

// imageKey strips query parameters so CDN size variants dedupe to one image.
func imageKey(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		return src[:i]
	}
	return src
}

// stripTagsBlocks removes all markup with a strict policy and returns the
// remainder as paragraphs.
func stripTagsBlocks(raw string) []Block {
	p := bluemonday.StrictPolicy()
	text := htmlesc.UnescapeString(p.Sanitize(raw))
	return textBlocks(text)
}

// textBlocks splits plain text on blank lines into paragraph blocks.
func textBlocks(text string) []Block {
	var blocks []Block
	for _, part := range strings.Split(text, "\n\n") {
		part = collapseSpaces(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		blocks = append(blocks, Block{Kind: BlockParagraph, Text: part})
	}
	return blocks
}

func charCount(blocks []Block) int {
	n := 0
	for _, b := range blocks {
		n += len(b.Text)
	}
	return n
}

func joinBlocks(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
