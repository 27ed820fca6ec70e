package dto

import (
	"time"

	"github.com/palace-events/events-api/internal/models"
)

// Profile is the signed-in user's page.
type Profile struct {
	User      models.UserInfo `json:"user"`
	Attending []models.Event  `json:"attending"`
	Created   []models.Event  `json:"created"`
}

// FeedLink is a personal calendar subscription URL.
type FeedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
