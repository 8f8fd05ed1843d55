package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/collabiora/companion/internal/types"
)

// ErrUnauthorized is returned when the backend rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the Collabiora backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("collabiora api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("collabiora api error: %s (%d)", e.Code, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("collabiora api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("collabiora api error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the Collabiora REST backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a backend client. token may be empty for the
// unauthenticated auth endpoints.
func NewClient(baseURL, token string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// NormalizeBaseURL normalizes an API base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("api url must include scheme (https://)")
	}
	value = strings.TrimRight(value, "/")
	return value, nil
}

// Favorites fetches the authoritative favorites collection for a user.
func (c *Client) Favorites(ctx context.Context, userID string) ([]types.FavoriteEntry, error) {
	var resp FavoritesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/favorites/"+url.PathEscape(userID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddFavorite creates a favorite entry for a user.
func (c *Client) AddFavorite(ctx context.Context, userID string, kind types.FavoriteKind, item types.Item) error {
	req := AddFavoriteRequest{Type: kind, Item: item}
	return c.doJSON(ctx, http.MethodPost, "/api/favorites/"+url.PathEscape(userID), nil, req, nil)
}

// RemoveFavorite deletes the favorite entry matching (kind, identity).
func (c *Client) RemoveFavorite(ctx context.Context, userID string, kind types.FavoriteKind, identity string) error {
	query := url.Values{}
	query.Set("type", string(kind))
	query.Set("id", identity)
	return c.doJSON(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(userID), query, nil, nil)
}

// Profile fetches a user's profile.
func (c *Client) Profile(ctx context.Context, userID string) (types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile/"+url.PathEscape(userID), nil, nil, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Recommendations fetches server-ranked suggestions for the dashboard.
func (c *Client) Recommendations(ctx context.Context, userID string) ([]types.Recommendation, error) {
	var resp RecommendationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/recommendations/"+url.PathEscape(userID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Follow sends a follow action for targetID. Fire-and-forget from the
// caller's perspective; the result is only surfaced as a notification.
func (c *Client) Follow(ctx context.Context, targetID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/follow", nil, FollowRequest{TargetID: targetID}, nil)
}

// FollowStatus reports whether the current user follows targetID.
func (c *Client) FollowStatus(ctx context.Context, targetID string) (bool, error) {
	var resp FollowStatusResponse
	query := url.Values{}
	query.Set("target", targetID)
	if err := c.doJSON(ctx, http.MethodGet, "/api/follow", query, nil, &resp); err != nil {
		return false, err
	}
	return resp.Following, nil
}

// RequestConnection sends a connection request to targetID.
func (c *Client) RequestConnection(ctx context.Context, targetID, message string) error {
	req := ConnectionRequest{TargetID: targetID, Message: message}
	return c.doJSON(ctx, http.MethodPost, "/api/connection-requests", nil, req, nil)
}

// RequestMeeting proposes a meeting with targetID.
func (c *Client) RequestMeeting(ctx context.Context, targetID, topic string, proposedAt int64) error {
	req := MeetingRequest{TargetID: targetID, Topic: topic, ProposedAt: proposedAt}
	return c.doJSON(ctx, http.MethodPost, "/api/meeting-requests", nil, req, nil)
}

// SendMessage delivers a direct message to targetID.
func (c *Client) SendMessage(ctx context.Context, targetID, body string) error {
	req := MessageRequest{TargetID: targetID, Body: body}
	return c.doJSON(ctx, http.MethodPost, "/api/messages", nil, req, nil)
}

// Summarize asks the backend to summarize opaque text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var resp SummaryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/summary", nil, SummaryRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// CheckEmailStatus polls the account verification state.
func (c *Client) CheckEmailStatus(ctx context.Context) (types.VerificationStatus, error) {
	var resp types.VerificationStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/check-email-status", nil, nil, &resp); err != nil {
		return types.VerificationStatus{}, err
	}
	return resp, nil
}

// VerifyOTP submits a one-time code.
func (c *Client) VerifyOTP(ctx context.Context, code string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/verify-otp", nil, VerifyOTPRequest{Code: code}, nil)
}

// VerifyEmailToken redeems a deep-link verification token.
func (c *Client) VerifyEmailToken(ctx context.Context, token string) error {
	query := url.Values{}
	query.Set("token", token)
	return c.doJSON(ctx, http.MethodGet, "/api/auth/verify-email", query, nil, nil)
}

// SendVerificationEmail asks the backend to (re)send the verification mail.
func (c *Client) SendVerificationEmail(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/send-verification-email", nil, nil, nil)
}

// Login authenticates with email/password and returns the session payload.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}

	if respBody == nil {
		return nil
	}
	if len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
