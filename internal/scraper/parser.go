package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iyhunko/price-tracker/internal/model"
)

// Result is the product data found on a page. Empty strings and a nil price mean "not found".
type Result struct {
	Name        string
	Price       *float64
	ImageURL    string
	Description string
	Platform    model.Platform
}

// Parser extracts product data from a parsed document.
type Parser interface {
	Parse(doc *goquery.Document) *Result
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(doc *goquery.Document) *Result

func (f ParserFunc) Parse(doc *goquery.Document) *Result {
	return f(doc)
}

var parsers = map[model.Platform]Parser{
	model.PlatformAmazon:  ParserFunc(parseAmazon),
	model.PlatformEbay:    ParserFunc(parseEbay),
	model.PlatformGeneric: ParserFunc(parseGeneric),
}

// ParserFor returns the parser of the platform detected from the page address.
func ParserFor(pageURL string) (model.Platform, Parser) {
	platform := model.PlatformFromURL(pageURL)
	return platform, parsers[platform]
}

func parseAmazon(doc *goquery.Document) *Result {
	return &Result{
		Name:        ownText(doc.Find("#productTitle")),
		Price:       ExtractPrice(ownText(doc.Find(".a-price-whole"))),
		ImageURL:    attr(doc.Find("#landingImage"), "src"),
		Description: collapseSpaces(doc.Find("#feature-bullets ul").First().Text()),
		Platform:    model.PlatformAmazon,
	}
}

func parseEbay(doc *goquery.Document) *Result {
	return &Result{
		Name:        ownText(doc.Find("h1#x-title-label-lbl")),
		Price:       ExtractPrice(ownText(doc.Find(".notranslate"))),
		ImageURL:    attr(doc.Find("#icImg"), "src"),
		Description: ownText(doc.Find(".u-flL.condText")),
		Platform:    model.PlatformEbay,
	}
}

func parseGeneric(doc *goquery.Document) *Result {
	name := ownText(doc.Find("h1"))
	if name == "" {
		name = ownText(doc.Find("title"))
	}
	return &Result{
		Name:        name,
		Price:       genericPrice(doc),
		ImageURL:    attr(doc.Find("img[src]"), "src"),
		Description: attr(doc.Find(`meta[name="description"][content]`), "content"),
		Platform:    model.PlatformGeneric,
	}
}

// genericPrice tries common price markup in order and returns the first positive amount.
func genericPrice(doc *goquery.Document) *float64 {
	textSelectors := []string{`span[class*="price"]`, `div[class*="price"]`, `*[class*="cost"]`}
	for _, selector := range textSelectors {
		if text := ownText(doc.Find(selector)); text != "" {
			if price := ExtractPrice(text); price != nil {
				return price
			}
		}
	}
	if value := attr(doc.Find("*[data-price]"), "data-price"); value != "" {
		return ExtractPrice(value)
	}
	return nil
}

// ownText returns the first non-blank text node that is a direct child of any selected element.
func ownText(sel *goquery.Selection) string {
	var found string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		s.Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if goquery.NodeName(node) != "#text" {
				return true
			}
			if text := strings.TrimSpace(node.Text()); text != "" {
				found = text
				return false
			}
			return true
		})
		return found == ""
	})
	return found
}

func attr(sel *goquery.Selection, name string) string {
	value, _ := sel.First().Attr(name)
	return strings.TrimSpace(value)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
