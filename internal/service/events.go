package service

import (
	"time"

	"github.com/google/uuid"
)

const (
	subjectListingListed   = "listing.listed"
	subjectListingSold     = "listing.sold"
	subjectListingRelisted = "listing.relisted"
	subjectListingRedeemed = "listing.redeemed"
)

// ListingEvent is the message published after every confirmed transition.
type ListingEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	ListingID uint64    `json:"listing_id"`
	Seller    string    `json:"seller,omitempty"`
	Buyer     string    `json:"buyer,omitempty"`
	Price     string    `json:"price,omitempty"`
	TokenID   uint64    `json:"token_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newListingEvent(eventType string, listingID uint64) ListingEvent {
	return ListingEvent{
		EventID:   uuid.New().String(),
		Type:      eventType,
		ListingID: listingID,
		Timestamp: time.Now().UTC(),
	}
}
