package models

// SearchField names a searchable RequestEvent attribute.
type SearchField string

const (
	FieldVisitorToken SearchField = "visitorToken"
	FieldHost         SearchField = "host"
	FieldUserAgent    SearchField = "userAgent"
	FieldIP           SearchField = "ip"
)

// SearchFields is the fixed set of fields the viewer may search by.
var SearchFields = []SearchField{FieldVisitorToken, FieldHost, FieldUserAgent, FieldIP}

// Valid reports whether f is one of the allowed search fields.
func (f SearchField) Valid() bool {
	switch f {
	case FieldVisitorToken, FieldHost, FieldUserAgent, FieldIP:
		return true
	}
	return false
}

// SearchRow is a stored event joined with the reputation of its IP.
type SearchRow struct {
	RequestEvent
	Reputation ReputationData `json:"reputation"`
}

// SearchResult is one page of rows. More is true when the page was full,
// which cannot tell "exactly one full page left" from "more than that".
type SearchResult struct {
	Rows  []SearchRow `json:"rows"`
	More  bool        `json:"more"`
	Query SearchEcho  `json:"query"`
}

// SearchEcho repeats the query so the viewer can render pagination links.
type SearchEcho struct {
	Type  SearchField `json:"type"`
	Value string      `json:"value"`
	Page  int         `json:"page"`
}
