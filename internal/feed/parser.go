package feed

import (
	"encoding/json"
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/bilgisen/newsfeed/internal/models"
)

var errNoResults = errors.New("response has no result list")

// Parser decodes search responses into articles.
// Unknown fields are ignored and missing fields stay absent.
type Parser struct {
	htmlTagRegex *regexp.Regexp
	imageBase    *url.URL
}

// NewParser creates a parser. Relative media URLs are resolved against imageBaseURL
// when it is a valid absolute URL.
func NewParser(imageBaseURL string) *Parser {
	p := &Parser{
		htmlTagRegex: regexp.MustCompile(`<[^>]*>`),
	}
	if base, err := url.Parse(strings.TrimSpace(imageBaseURL)); err == nil && base.IsAbs() {
		p.imageBase = base
	}
	return p
}

type searchResponse struct {
	Response *struct {
		Docs []searchDoc `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	Abstract *string `json:"abstract"`
	Headline *struct {
		Main *string `json:"main"`
	} `json:"headline"`
	Byline *struct {
		Original *string `json:"original"`
	} `json:"byline"`
	// Older API versions send a list, newer ones an object keyed by rendition.
	Multimedia json.RawMessage `json:"multimedia"`
}

type searchMedia struct {
	Type *string `json:"type"`
	URL  *string `json:"url"`
}

// ParseSearchResponse decodes body into articles in response order.
func (p *Parser) ParseSearchResponse(body []byte) ([]models.Article, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Err: err}
	}
	if resp.Response == nil || resp.Response.Docs == nil {
		return nil, &ParseError{Err: errNoResults}
	}

	articles := make([]models.Article, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		articles = append(articles, p.toArticle(doc))
	}
	return articles, nil
}

func (p *Parser) toArticle(doc searchDoc) models.Article {
	article := models.Article{
		Abstract: p.cleanPtr(doc.Abstract),
	}
	if doc.Headline != nil {
		article.Headline = p.cleanPtr(doc.Headline.Main)
	}
	if doc.Byline != nil {
		article.Byline = p.cleanPtr(doc.Byline.Original)
	}
	if raw := p.mediaURL(doc.Multimedia); raw != "" {
		article.MediaImageURL = models.String(p.resolveImage(raw))
	}
	return article
}

// CleanHTML removes HTML tags and normalizes whitespace
func (p *Parser) CleanHTML(input string) string {
	// Remove HTML tags
	cleaned := p.htmlTagRegex.ReplaceAllString(input, " ")
	// Unescape HTML entities
	cleaned = html.UnescapeString(cleaned)
	// Normalize whitespace
	return strings.Join(strings.Fields(cleaned), " ")
}

func (p *Parser) cleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return models.String(p.CleanHTML(*s))
}

// mediaURL picks the first image rendition, falling back to the first entry.
// Shapes it cannot read yield no image rather than a parse failure.
func (p *Parser) mediaURL(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var list []searchMedia
	if err := json.Unmarshal(raw, &list); err == nil {
		var fallback string
		for _, m := range list {
			if m.URL == nil || strings.TrimSpace(*m.URL) == "" {
				continue
			}
			if m.Type != nil && *m.Type == "image" {
				return strings.TrimSpace(*m.URL)
			}
			if fallback == "" {
				fallback = strings.TrimSpace(*m.URL)
			}
		}
		return fallback
	}

	var renditions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &renditions); err != nil {
		return ""
	}
	for _, key := range []string{"default", "thumbnail"} {
		var m searchMedia
		if err := json.Unmarshal(renditions[key], &m); err == nil && m.URL != nil && strings.TrimSpace(*m.URL) != "" {
			return strings.TrimSpace(*m.URL)
		}
	}
	return ""
}

func (p *Parser) resolveImage(raw string) string {
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() || p.imageBase == nil {
		return raw
	}
	return p.imageBase.ResolveReference(ref).String()
}
