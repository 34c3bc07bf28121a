package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestEvent is one tracked inbound request. Events are append-only.
type RequestEvent struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	IP           string    `bson:"ip" json:"ip"`
	URL          string    `bson:"url" json:"url"`
	Method       string    `bson:"method" json:"method"`
	UserAgent    string    `bson:"user_agent" json:"user_agent"`
	VisitorToken string    `bson:"visitor_token" json:"visitor_token"`
	Host         string    `bson:"host" json:"host"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
}

// RequestQuery is a filtered, paginated read over stored events.
// Field must be one of the SearchField constants.
type RequestQuery struct {
	Field    SearchField
	Value    string
	Fragment bool // substring match instead of exact match
	Limit    int
	Offset   int
}
