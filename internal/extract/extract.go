package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/fetch"
	"github.com/nao1215/brewcrawl/internal/link"
	"github.com/nao1215/brewcrawl/internal/model"
)

// Field names written by the extractor.
const (
	FieldBreweryName = "Brewery Name"
	FieldServeIn     = "Serve in"
	FieldStyle       = "Style"
	FieldName        = "Name"
	FieldDescription = "Commercial Description"

	// ratingsCountLabel is the one abbreviation whose value is the
	// adjacent node rather than the one after it.
	ratingsCountLabel = "RATINGS:"
)

// TimestampLayout formats the "UTC timestamp" field.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// aliasMarker appears on pages that only forward to another beer.
const aliasMarker = "Proceed to the aliased beer"

var (
	ratingValuePattern = regexp.MustCompile(`([0-9]\.?[0-9]*)/`)
	stylePattern       = regexp.MustCompile(`/beerstyles/`)
)

// Extractor fetches beer pages and converts them into records.
type Extractor struct {
	fetcher fetch.Fetcher
	parser  document.Parser
	baseURL string
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the time source for the "UTC timestamp" field.
func WithClock(clock func() time.Time) Option {
	return func(e *Extractor) {
		e.clock = clock
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New returns an Extractor. Relative beer URLs are resolved against
// baseURL.
func New(fetcher fetch.Fetcher, parser document.Parser, baseURL string, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher: fetcher,
		parser:  parser,
		baseURL: baseURL,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches the beer page at beerURL and returns its record.
// An alias page yields model.NewAliasRecord().
func (e *Extractor) Extract(ctx context.Context, beerURL string) (*model.Record, error) {
	pageURL, err := link.Resolve(e.baseURL, beerURL)
	if err != nil {
		return nil, err
	}

	body, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", beerURL, err)
	}
	doc, err := e.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", beerURL, err)
	}

	record, err := e.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", beerURL, err)
	}
	return record, nil
}

// FromDocument builds a record from an already parsed beer page.
func (e *Extractor) FromDocument(doc *document.Document) (*model.Record, error) {
	if doc.Contains(aliasMarker) {
		return model.NewAliasRecord(), nil
	}

	l, err := locate(doc)
	if err != nil {
		return nil, err
	}

	record := model.NewRecord()
	if err := readBreweryInfo(doc, l.brewery, record); err != nil {
		return nil, err
	}
	e.readRatings(l.ratings, record)
	e.readAbbreviations(l.ratings, record)

	record.Set(model.TimestampField, e.clock().UTC().Format(TimestampLayout))

	if desc := l.middle.FindByID("_description3"); desc != nil {
		record.Set(FieldDescription, clean(desc.Text()))
	}
	return record, nil
}

// layout holds the structural blocks of a beer page.
type layout struct {
	middle  *document.Node
	brewery *document.Node
	ratings *document.Node
}

func locate(doc *document.Document) (layout, error) {
	anchor := doc.FindByID("tdL")
	if anchor == nil {
		return layout{}, fmt.Errorf("%w: element #tdL", ErrLayoutNotFound)
	}
	middle := anchor.NextSibling().Child(0)
	if middle == nil {
		return layout{}, fmt.Errorf("%w: block after #tdL", ErrLayoutNotFound)
	}
	brewery := middle.Child(0)
	ratings := middle.Child(1)
	if brewery == nil || ratings == nil {
		return layout{}, fmt.Errorf("%w: brewery and ratings blocks", ErrLayoutNotFound)
	}
	return layout{middle: middle, brewery: brewery, ratings: ratings}, nil
}

func readBreweryInfo(doc *document.Document, brewery *document.Node, record *model.Record) error {
	brand := brewery.FindByID("_brand4")
	if brand == nil {
		return fmt.Errorf("%w: element #_brand4", ErrLayoutNotFound)
	}
	record.Set(FieldBreweryName, clean(brand.Text()))

	serve := brewery.FindByID("modal").NextSibling()
	if serve == nil {
		return fmt.Errorf("%w: serving glass after #modal", ErrLayoutNotFound)
	}
	record.Set(FieldServeIn, clean(serve.Text()))

	style := brewery.FindByAttrMatch("href", stylePattern)
	if style == nil {
		return fmt.Errorf("%w: /beerstyles/ link", ErrLayoutNotFound)
	}
	record.Set(FieldStyle, clean(style.Text()))

	name := doc.FindByClass("user-header").FindByAttr("itemprop", "name")
	if name == nil {
		return fmt.Errorf("%w: .user-header [itemprop=name]", ErrLayoutNotFound)
	}
	record.Set(FieldName, clean(name.Text()))
	return nil
}

// readRatings reads every a[name="real average"]. The first child is the
// label, used as the field name exactly as it appears in the page; the
// second holds a score such as "3.8/5".
func (e *Extractor) readRatings(ratings *document.Node, record *model.Record) {
	for _, a := range ratings.FindAllWithAttr("a", "name", "real average") {
		label := clean(a.Child(0).Text())
		m := ratingValuePattern.FindStringSubmatch(a.Child(1).Text())
		if label == "" || m == nil {
			e.logger.Debug("skipping rating without label or score", "label", label)
			continue
		}
		record.Set(label, m[1])
	}
}

// readAbbreviations reads the labelled values (ABV, IBU, ...) of the
// ratings block. Sibling positions count text nodes.
func (e *Extractor) readAbbreviations(ratings *document.Node, record *model.Record) {
	for _, abbr := range ratings.FindAll("abbr") {
		key := strings.TrimSpace(clean(abbr.Text()))
		value := abbr.NextSibling()
		if key != ratingsCountLabel {
			value = value.NextSibling()
		}
		if key == "" || value == nil {
			e.logger.Debug("skipping abbreviation without value", "label", key)
			continue
		}
		record.Set(key, clean(value.Text()))
	}
}

// clean normalizes page text to NFC.
func clean(s string) string {
	return norm.NFC.String(s)
}
