package types

// FavoriteKind categorizes what a favorite entry points at.
type FavoriteKind string

const (
	KindExpert       FavoriteKind = "expert"
	KindPublication  FavoriteKind = "publication"
	KindTrial        FavoriteKind = "trial"
	KindCollaborator FavoriteKind = "collaborator"
)

// ValidKind reports whether k is one of the known favorite kinds.
func ValidKind(k FavoriteKind) bool {
	switch k {
	case KindExpert, KindPublication, KindTrial, KindCollaborator:
		return true
	}
	return false
}

// Item is a denormalized record as the backend hands it out. Different
// sources populate different subsets of the identifier fields, so nothing
// here except the display fields can be assumed present.
type Item struct {
	ID    string `json:"id,omitempty"`
	AltID string `json:"_id,omitempty"`
	ORCID string `json:"orcid,omitempty"`
	PMID  string `json:"pmid,omitempty"`
	DOI   string `json:"doi,omitempty"`
	NCTID string `json:"nctId,omitempty"`

	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Affiliation string   `json:"affiliation,omitempty"`
	Journal     string   `json:"journal,omitempty"`
	Year        int      `json:"year,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Status      string   `json:"status,omitempty"`
	MatchScore  *float64 `json:"matchScore,omitempty"`
}

// FavoriteEntry is one saved item in a user's favorites collection.
// Identity is the deduplication key derived from the item; Payload is the
// snapshot taken at save time so lists render without a re-fetch.
type FavoriteEntry struct {
	Kind     FavoriteKind `json:"type"`
	Identity string       `json:"identity"`
	LocalID  string       `json:"local_id,omitempty"`
	SavedAt  int64        `json:"saved_at"`
	Payload  Item         `json:"item"`
}

// SyncMessage is the envelope broadcast between client contexts. It is
// ephemeral: consumed once per listener and discarded.
type SyncMessage struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Sync message types form a closed set.
const (
	SyncEmailVerified = "email-verified"
	SyncUserUpdated   = "user-updated"
)

// User is the account profile as returned by the backend.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role,omitempty"` // "patient" | "researcher"
	ORCID         string `json:"orcid,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// Session is the locally persisted login state.
type Session struct {
	User             User   `json:"user"`
	Token            string `json:"token"`
	ProfileSignature string `json:"profile_signature,omitempty"`
	LoggedInAt       int64  `json:"logged_in_at"`
}

// VerificationStatus is what /api/auth/check-email-status reports.
type VerificationStatus struct {
	Verified   bool   `json:"verified"`
	Email      string `json:"email"`
	PendingOTP bool   `json:"pendingOtp,omitempty"`
}

// Recommendation is a server-ranked suggestion shown on the dashboard.
// Match percentages are computed server-side and only displayed here.
type Recommendation struct {
	Kind  FavoriteKind `json:"type"`
	Item  Item         `json:"item"`
	Score float64      `json:"score"`
}
