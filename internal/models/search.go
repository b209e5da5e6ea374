package models

import "encoding/json"

// ArticleSearchResult is one article returned by the search endpoint
type ArticleSearchResult struct {
	Headline string `json:"headline"`
	Snippet  string `json:"snippet"`
	WebURL   string `json:"web_url"`
	PubDate  string `json:"pub_date"`
}

// ArticleSearchResponse is the body returned by the NYT article search API
type ArticleSearchResponse struct {
	Status   string `json:"status"`
	Response struct {
		Docs []json.RawMessage `json:"docs"`
	} `json:"response"`
}

// SearchDoc holds the fields we read from a single search document
type SearchDoc struct {
	Headline *struct {
		Main string `json:"main"`
	} `json:"headline"`
	Snippet string `json:"snippet"`
	WebURL  string `json:"web_url"`
	PubDate string `json:"pub_date"`
}

// Result maps the document to an ArticleSearchResult. ok is false when any
// required field is missing or empty.
func (d SearchDoc) Result() (ArticleSearchResult, bool) {
	if d.Headline == nil || d.Headline.Main == "" || d.Snippet == "" || d.WebURL == "" || d.PubDate == "" {
		return ArticleSearchResult{}, false
	}
	return ArticleSearchResult{
		Headline: d.Headline.Main,
		Snippet:  d.Snippet,
		WebURL:   d.WebURL,
		PubDate:  d.PubDate,
	}, true
}
