package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"astrobook/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Provider creates video meetings for confirmed bookings.
type Provider interface {
	CreateMeeting(ctx context.Context, req MeetingRequest) (*models.Meeting, error)
}

type MeetingRequest struct {
	Topic    string
	Start    time.Time
	Duration time.Duration
	Timezone string
	Agenda   string
}

type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	HostUser     string
	APIBaseURL   string
	TokenURL     string
}

// ZoomClient uses Server-to-Server OAuth (account_credentials grant).
type ZoomClient struct {
	httpClient *http.Client
	baseURL    string
	hostUser   string
}

// NewZoomClient builds a client whose token is fetched and refreshed by oauth2.
// base is the transport used for both token and API calls; nil means http.DefaultClient.
func NewZoomClient(cfg ZoomConfig, base *http.Client) *ZoomClient {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	ctx := context.Background()
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	host := cfg.HostUser
	if host == "" {
		host = "me"
	}
	return &ZoomClient{
		httpClient: creds.Client(ctx),
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		hostUser:   host,
	}
}

type createMeetingBody struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone,omitempty"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	JoinBeforeHost bool `json:"join_before_host"`
	WaitingRoom    bool `json:"waiting_room"`
}

type createMeetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

func (z *ZoomClient) CreateMeeting(ctx context.Context, req MeetingRequest) (*models.Meeting, error) {
	body, err := json.Marshal(createMeetingBody{
		Topic:     req.Topic,
		Type:      2, // scheduled meeting
		StartTime: req.Start.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  int(req.Duration / time.Minute),
		Timezone:  req.Timezone,
		Agenda:    req.Agenda,
		Settings:  meetingSettings{WaitingRoom: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode meeting request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/meetings", z.baseURL, url.PathEscape(z.hostUser))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := z.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zoom request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("zoom returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode zoom response: %w", err)
	}
	if out.JoinURL == "" {
		return nil, fmt.Errorf("zoom response has no join_url")
	}
	return &models.Meeting{ID: strconv.FormatInt(out.ID, 10), JoinURL: out.JoinURL}, nil
}
