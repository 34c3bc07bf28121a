package models

import (
	"time"

	"github.com/google/uuid"
)

// Unknown is the placeholder for reputation attributes that could not be resolved.
const Unknown = "N/A"

// ReputationData is the geolocation / VPN verdict for an IP.
type ReputationData struct {
	Country  string `bson:"country" json:"country"`
	City     string `bson:"city" json:"city"`
	Provider string `bson:"provider" json:"provider"`
	VPN      bool   `bson:"vpn" json:"vpn"`
}

// UnknownReputation is returned whenever no fresh entry exists and the
// external lookup is unavailable or failed.
var UnknownReputation = ReputationData{
	Country:  Unknown,
	City:     Unknown,
	Provider: Unknown,
	VPN:      false,
}

// ReputationEntry is a cached ReputationData for one IP.
// An entry is fresh while now - Timestamp < TTL.
type ReputationEntry struct {
	ID             uuid.UUID `bson:"_id" json:"id"`
	IP             string    `bson:"ip" json:"ip"`
	ReputationData `bson:",inline"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
}
