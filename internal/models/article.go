package models

// Article is one search result as parsed from the remote API.
// Every field is optional: nil means the API did not send it.
type Article struct {
	Headline      *string `json:"headline,omitempty"`
	Abstract      *string `json:"abstract,omitempty"`
	Byline        *string `json:"byline,omitempty"`
	MediaImageURL *string `json:"mediaImageUrl,omitempty"`
}

// ArticleEntity is the persisted form of an article, stored one record per article.
type ArticleEntity struct {
	Headline      *string `json:"headline"`
	Abstract      *string `json:"abstract"`
	Byline        *string `json:"byline"`
	MediaImageURL *string `json:"mediaImageUrl"`
}

// DisplayArticle is the view form rendered by the list.
type DisplayArticle struct {
	Headline      *string `json:"headline"`
	Abstract      *string `json:"abstract"`
	Byline        *string `json:"byline"`
	MediaImageURL *string `json:"mediaImageUrl"`
}

// Entity converts a remote article into its persisted form.
func (a Article) Entity() ArticleEntity {
	return ArticleEntity{
		Headline:      clone(a.Headline),
		Abstract:      clone(a.Abstract),
		Byline:        clone(a.Byline),
		MediaImageURL: clone(a.MediaImageURL),
	}
}

// Display converts a remote article into its view form.
func (a Article) Display() DisplayArticle {
	return DisplayArticle{
		Headline:      clone(a.Headline),
		Abstract:      clone(a.Abstract),
		Byline:        clone(a.Byline),
		MediaImageURL: clone(a.MediaImageURL),
	}
}

// Display converts a persisted record into its view form.
func (e ArticleEntity) Display() DisplayArticle {
	return DisplayArticle{
		Headline:      clone(e.Headline),
		Abstract:      clone(e.Abstract),
		Byline:        clone(e.Byline),
		MediaImageURL: clone(e.MediaImageURL),
	}
}

// EntitiesFromArticles maps a fetch result to persisted records, keeping order.
func EntitiesFromArticles(articles []Article) []ArticleEntity {
	out := make([]ArticleEntity, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Entity())
	}
	return out
}

// DisplayFromArticles maps a fetch result to the view form, keeping order.
func DisplayFromArticles(articles []Article) []DisplayArticle {
	out := make([]DisplayArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Display())
	}
	return out
}

// DisplayFromEntities maps persisted records to the view form, keeping order.
func DisplayFromEntities(entities []ArticleEntity) []DisplayArticle {
	out := make([]DisplayArticle, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Display())
	}
	return out
}

// HeadlineText returns the headline or fallback when absent.
func (d DisplayArticle) HeadlineText(fallback string) string {
	return valueOr(d.Headline, fallback)
}

// AbstractText returns the abstract or fallback when absent.
func (d DisplayArticle) AbstractText(fallback string) string {
	return valueOr(d.Abstract, fallback)
}

// BylineText returns the byline or fallback when absent.
func (d DisplayArticle) BylineText(fallback string) string {
	return valueOr(d.Byline, fallback)
}

// ImageText returns the media image URL or fallback when absent.
func (d DisplayArticle) ImageText(fallback string) string {
	return valueOr(d.MediaImageURL, fallback)
}

// String returns a pointer to s. Handy for building optional fields.
func String(s string) *string {
	return &s
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
