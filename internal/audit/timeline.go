// Package audit exposes the write history recorded by the dispatcher.
package audit

import "time"

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	Collection string
	Actor      string
	Action     string
	Page       int
	PageSize   int
}

// Entry is one audit record as returned to the client.
type Entry struct {
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Collection string         `json:"collection"`
	DocumentID string         `json:"documentId"`
	Meta       map[string]any `json:"meta,omitempty"`
	At         time.Time      `json:"at"`
}

// PagingInfo describes the position of the returned page.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result wraps a timeline page with its paging information.
type Result struct {
	Entries []Entry    `json:"entries"`
	Paging  PagingInfo `json:"paging"`
}
