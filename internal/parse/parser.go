// Package parse extracts intermediate content cards from raw Cuevana HTML.
//
// Extraction is field-by-field and independently fault-tolerant: a missing or
// malformed field never aborts the whole card. Only cards lacking a title or
// source URL are dropped, and those drops are counted rather than raised.
package parse

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

// Selector fallback chains for the known page structure. The site drifts, so
// every chain carries the variants observed in the wild.
const (
	movieCardSelector  = ".movie-item, .film-item, article"
	tvCardSelector     = ".series-item, .tv-item, article"
	cardTitleSelector  = "h2, h3, .title, .name"
	cardYearSelector   = ".year, .date"
	cardRatingSelector = ".rating, .score, [data-rating]"
	genreSelector      = ".genre, .tag, [data-genre]"
	descSelector       = ".description, .synopsis, .plot"

	detailTitleSelector   = "h1, .title, .movie-title"
	detailYearSelector    = ".year, .release-year"
	detailPosterSelector  = "img.poster, img.thumbnail"
	detailRuntimeSelector = ".runtime, .duration"

	streamSelector = ".server-item, .stream-link, .player-link"
)

var (
	yearPattern   = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2}|2100)\b`)
	ratingPattern = regexp.MustCompile(`^\s*\d{1,2}([.,]\d+)?\s*$`)
)

// Parser turns raw HTML into content cards.
type Parser struct {
	baseURL string
	logger  *zap.Logger
}

// New builds a Parser. baseURL resolves relative card links.
func New(baseURL string, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Parse extracts one card per content item found on a listing page. It
// returns the cards plus the number of cards dropped for missing mandatory
// fields.
func (p *Parser) Parse(html []byte, kind catalog.Kind) ([]catalog.Card, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, 0, err
	}

	selector := movieCardSelector
	if kind == catalog.KindTVShow {
		selector = tvCardSelector
	}

	var (
		cards   []catalog.Card
		dropped int
	)
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		card := p.parseCard(sel)
		if !card.Complete() {
			dropped++
			p.logger.Debug("dropped card missing mandatory field",
				zap.Bool("has_title", card.Title.State == catalog.FieldPresent),
				zap.Bool("has_url", card.SourceURL.State == catalog.FieldPresent),
			)
			return
		}
		cards = append(cards, card)
	})
	return cards, dropped, nil
}

// ParseDetail extracts a single card from a detail page. sourceURL is the
// page's own address and becomes the card's source URL.
func (p *Parser) ParseDetail(html []byte, sourceURL string) (catalog.Card, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return catalog.Card{}, err
	}

	card := catalog.Card{SourceURL: catalog.Text(sourceURL)}
	card.Title = textField(doc.Find(detailTitleSelector).First())
	card.Description = textField(doc.Find(descSelector).First())
	card.Runtime = textField(doc.Find(detailRuntimeSelector).First())
	card.Year = p.yearField(doc.Find(detailYearSelector).First(), "")
	card.Rating = p.ratingField(doc.Find(cardRatingSelector).First(), "", &card)
	card.Genres = collectGenres(doc.Selection)

	if poster := doc.Find(detailPosterSelector).First(); poster.Length() > 0 {
		if src := imageSource(poster); src != "" {
			card.Poster = catalog.Text(p.absoluteURL(src))
		}
	}
	return card, nil
}

// ParseStreams extracts the playback links listed on a detail page.
func (p *Parser) ParseStreams(html []byte) ([]catalog.Stream, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var streams []catalog.Stream
	doc.Find(streamSelector).Each(func(_ int, sel *goquery.Selection) {
		streamURL, ok := sel.Attr("href")
		if !ok || streamURL == "" {
			streamURL, _ = sel.Attr("data-url")
		}
		if streamURL == "" {
			return
		}
		streams = append(streams, catalog.Stream{
			Server: strings.TrimSpace(sel.Text()),
			URL:    streamURL,
		})
	})
	return streams, nil
}

func (p *Parser) parseCard(sel *goquery.Selection) catalog.Card {
	var card catalog.Card

	card.Title = textField(sel.Find(cardTitleSelector).First())

	if link := sel.Find("a[href]").First(); link.Length() > 0 {
		if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
			card.SourceURL = catalog.Text(p.absoluteURL(strings.TrimSpace(href)))
		}
	}

	if img := sel.Find("img").First(); img.Length() > 0 {
		if src := imageSource(img); src != "" {
			card.Poster = catalog.Text(p.absoluteURL(src))
		}
	}

	fallback := sel.Text()
	card.Year = p.yearField(sel.Find(cardYearSelector).First(), fallback)
	card.Rating = p.ratingField(sel.Find(cardRatingSelector).First(), spanFallback(sel), &card)
	card.Description = textField(sel.Find(descSelector).First())
	card.Genres = collectGenres(sel)
	return card
}

// yearField parses a year from the selected node, falling back to scanning
// fallbackText when the structural selector matches nothing.
func (p *Parser) yearField(sel *goquery.Selection, fallbackText string) catalog.IntField {
	text := ""
	if sel.Length() > 0 {
		text = strings.TrimSpace(sel.Text())
	}
	if text == "" {
		if fallbackText == "" {
			return catalog.IntField{State: catalog.FieldAbsent}
		}
		match := yearPattern.FindString(fallbackText)
		if match == "" {
			return catalog.IntField{State: catalog.FieldAbsent}
		}
		year, _ := strconv.Atoi(match)
		return catalog.IntField{State: catalog.FieldPresent, Value: year}
	}

	match := yearPattern.FindString(text)
	if match == "" {
		return catalog.IntField{State: catalog.FieldMalformed}
	}
	year, _ := strconv.Atoi(match)
	return catalog.IntField{State: catalog.FieldPresent, Value: year}
}

// ratingField parses a rating, accepting a locale decimal comma and clamping
// out-of-range values to [0, 10]. Clamping is flagged on the card, not raised.
func (p *Parser) ratingField(sel *goquery.Selection, fallbackText string, card *catalog.Card) catalog.FloatField {
	text := ""
	if sel.Length() > 0 {
		text = strings.TrimSpace(sel.Text())
	}
	if text == "" {
		text = fallbackText
	}
	if text == "" {
		return catalog.FloatField{State: catalog.FieldAbsent}
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return catalog.FloatField{State: catalog.FieldMalformed}
	}
	switch {
	case value < 0:
		value = 0
		card.RatingClamped = true
	case value > 10:
		value = 10
		card.RatingClamped = true
	}
	return catalog.FloatField{State: catalog.FieldPresent, Value: value}
}

// spanFallback looks for a lone numeric span, the shape rating text takes on
// cards without a dedicated rating class.
func spanFallback(sel *goquery.Selection) string {
	found := ""
	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if ratingPattern.MatchString(text) && !yearPattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func collectGenres(sel *goquery.Selection) []string {
	var raw []string
	sel.Find(genreSelector).Each(func(_ int, g *goquery.Selection) {
		if text := strings.TrimSpace(g.Text()); text != "" {
			raw = append(raw, text)
		}
	})
	return NormalizeGenres(raw)
}

func textField(sel *goquery.Selection) catalog.TextField {
	if sel.Length() == 0 {
		return catalog.TextField{State: catalog.FieldAbsent}
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return catalog.TextField{State: catalog.FieldAbsent}
	}
	return catalog.Text(text)
}

func imageSource(sel *goquery.Selection) string {
	if src, ok := sel.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := sel.Attr("data-src"); ok && src != "" {
		return src
	}
	return ""
}

func (p *Parser) absoluteURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}
	base, err := url.Parse(p.baseURL + "/")
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}
