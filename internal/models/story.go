package models

import "encoding/json"

// TopStory is one entry of the combined top stories feed
type TopStory struct {
	Title         string `json:"title"`
	Section       string `json:"section"`
	URL           string `json:"url"`
	Abstract      string `json:"abstract"`
	PublishedDate string `json:"published_date"`
}

// TopStoriesResponse is the body returned by the NYT top stories API.
// Items stay raw so one malformed item does not spoil the whole section.
type TopStoriesResponse struct {
	Status  string            `json:"status"`
	Section string            `json:"section"`
	Results []json.RawMessage `json:"results"`
}

// TopStoryItem holds the fields we read from a single upstream result
type TopStoryItem struct {
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	Section       string `json:"section"`
}

// Complete reports whether every field needed for a TopStory is non-empty.
func (i TopStoryItem) Complete() bool {
	return i.Title != "" && i.Abstract != "" && i.URL != "" && i.PublishedDate != "" && i.Section != ""
}

// ToTopStory converts the upstream item into the public model
func (i TopStoryItem) ToTopStory() TopStory {
	return TopStory{
		Title:         i.Title,
		Section:       i.Section,
		URL:           i.URL,
		Abstract:      i.Abstract,
		PublishedDate: i.PublishedDate,
	}
}
