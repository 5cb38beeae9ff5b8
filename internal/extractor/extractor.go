// Package extractor pulls the gold price out of the source page.
//
// The page markup is not stable enough for selector-based scraping, so the
// document is flattened to visible text in document order and a tolerant
// pattern is matched across what used to be separate elements.
package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

// Default anchor phrases: "karat 24", "sell" and "Egyptian pound".
const (
	DefaultPurityLabel   = "عيار 24"
	DefaultSellLabel     = "بيع"
	DefaultCurrencyLabel = "جنيه"
)

// Config holds the anchor phrases the price must sit between.
type Config struct {
	PurityLabel   string
	SellLabel     string
	CurrencyLabel string
}

// Extractor implements goldprice.Extractor.
type Extractor struct {
	pattern *regexp.Regexp
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// New compiles the price pattern for cfg. Empty labels fall back to defaults.
func New(cfg Config) (*Extractor, error) {
	if cfg.PurityLabel == "" {
		cfg.PurityLabel = DefaultPurityLabel
	}
	if cfg.SellLabel == "" {
		cfg.SellLabel = DefaultSellLabel
	}
	if cfg.CurrencyLabel == "" {
		cfg.CurrencyLabel = DefaultCurrencyLabel
	}
	for _, label := range []string{cfg.PurityLabel, cfg.SellLabel, cfg.CurrencyLabel} {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: anchor labels must not be blank", goldprice.ErrConfig)
		}
	}
	expr := fmt.Sprintf(`(?s)%s.*?%s%s([0-9][0-9,.]*)%s%s`,
		labelPattern(cfg.PurityLabel),
		labelPattern(cfg.SellLabel),
		gap,
		gap,
		labelPattern(cfg.CurrencyLabel),
	)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compile price pattern: %w", goldprice.ErrConfig, err)
	}
	return &Extractor{pattern: re}, nil
}

// Matches reports whether page carries an extractable price.
func (e *Extractor) Matches(page string) bool {
	_, err := e.Extract(page)
	return err == nil
}

// gap matches any whitespace run. RE2's \s is ASCII only, so Unicode space
// separators such as NBSP are added explicitly.
const gap = `[\s\p{Z}]*`

// labelPattern quotes a label and lets any whitespace run match its spaces,
// so "عيار 24" also matches "عيار\n24" or "عيار&nbsp;24" after flattening.
func labelPattern(label string) string {
	fields := strings.Fields(label)
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	return strings.Join(fields, gap)
}

// Extract returns the first price found in the page.
func (e *Extractor) Extract(page string) (float64, error) {
	text, err := FlattenHTML(page)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", goldprice.ErrExtraction, err)
	}
	return e.ExtractText(text)
}

// ExtractText applies the price pattern to already-flattened text.
func (e *Extractor) ExtractText(text string) (float64, error) {
	m := e.pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: gold price not found", goldprice.ErrExtraction)
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse price %q: %w", goldprice.ErrExtraction, m[1], err)
	}
	return price, nil
}

// FlattenHTML converts markup to its visible text, one trimmed text node per
// line, in document order.
func FlattenHTML(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var lines []string
	for _, n := range doc.Nodes {
		collectText(n, &lines)
	}
	return strings.Join(lines, "\n"), nil
}

func collectText(n *html.Node, lines *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*lines = append(*lines, s)
		}
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
