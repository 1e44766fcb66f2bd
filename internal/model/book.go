package model

import "time"

// Book holds the raw text retrieved for a book identifier
type Book struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	SourceURL string    `json:"source_url,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	FetchMeta FetchMeta `json:"fetch_meta"`
}

// FetchMeta contains HTTP metadata from fetching the source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// BookMetadata describes a book as listed on its catalog page
type BookMetadata struct {
	ID        string   `json:"id"`
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Language  string   `json:"language,omitempty"`
	SourceURL string   `json:"source_url"`
}
