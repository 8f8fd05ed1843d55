package api

import "github.com/collabiora/companion/internal/types"

// FavoritesResponse wraps the favorites collection.
type FavoritesResponse struct {
	Items []types.FavoriteEntry `json:"items"`
}

// AddFavoriteRequest creates a favorite entry.
type AddFavoriteRequest struct {
	Type types.FavoriteKind `json:"type"`
	Item types.Item         `json:"item"`
}

// RecommendationsResponse wraps dashboard recommendations.
type RecommendationsResponse struct {
	Items []types.Recommendation `json:"items"`
}

// FollowRequest follows another account.
type FollowRequest struct {
	TargetID string `json:"targetId"`
}

// FollowStatusResponse reports follow state for a target.
type FollowStatusResponse struct {
	Following bool `json:"following"`
}

// ConnectionRequest asks another account to connect.
type ConnectionRequest struct {
	TargetID string `json:"targetId"`
	Message  string `json:"message,omitempty"`
}

// MeetingRequest proposes a meeting.
type MeetingRequest struct {
	TargetID   string `json:"targetId"`
	Topic      string `json:"topic,omitempty"`
	ProposedAt int64  `json:"proposedAt,omitempty"`
}

// MessageRequest delivers a direct message.
type MessageRequest struct {
	TargetID string `json:"targetId"`
	Body     string `json:"body"`
}

// SummaryRequest asks for an AI summary of opaque text.
type SummaryRequest struct {
	Text string `json:"text"`
}

// SummaryResponse carries the generated summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// VerifyOTPRequest submits a one-time code.
type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// LoginRequest authenticates with credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session.
type LoginResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}
