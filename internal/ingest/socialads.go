package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"leadgate/internal/lead"
)

const defaultSocialAdsBaseURL = "https://graph.socialads.example/v18.0"

// ErrMissingCredentials is returned when an adapter is invoked without the
// API credentials it needs.
var ErrMissingCredentials = errors.New("ingest: missing source API credentials")

// SocialAdsClient pulls submitted lead forms from a social-ad platform's
// lead-generation API.
type SocialAdsClient struct {
	baseURL string
	token   string
	pageID  string
	client  *http.Client
	now     func() time.Time
}

// NewSocialAdsClient builds a client for one ad account page. Timeout bounds
// every fetch.
func NewSocialAdsClient(token, pageID string, timeout time.Duration) *SocialAdsClient {
	return &SocialAdsClient{
		baseURL: defaultSocialAdsBaseURL,
		token:   token,
		pageID:  pageID,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// leadPayload is the wire shape shared by the HTTP sources.
type leadPayload struct {
	LeadID           string `json:"lead_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth"`
	ZipCode          string `json:"zip_code"`
	State            string `json:"state"`
	CoverageType     string `json:"coverage_type"`
	HouseholdIncome  string `json:"household_income"`
	HealthConditions string `json:"health_conditions"`
	Notes            string `json:"notes"`
	CurrentCoverage  bool   `json:"current_coverage"`
	ConsentGiven     bool   `json:"consent_given"`
	TCPACompliant    bool   `json:"tcpa_compliant"`
}

func (p leadPayload) toRecord() lead.Record {
	return lead.Record{
		LeadID:           p.LeadID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      p.DateOfBirth,
		ZipCode:          p.ZipCode,
		State:            p.State,
		CoverageType:     p.CoverageType,
		HouseholdIncome:  p.HouseholdIncome,
		HealthConditions: p.HealthConditions,
		Notes:            p.Notes,
		CurrentCoverage:  p.CurrentCoverage,
		ConsentGiven:     p.ConsentGiven,
		TCPACompliant:    p.TCPACompliant,
	}
}

// FetchByDate returns all leads submitted on the given day (YYYY-MM-DD).
func (s *SocialAdsClient) FetchByDate(ctx context.Context, date string) ([]lead.Record, error) {
	if s.token == "" || s.pageID == "" {
		return nil, ErrMissingCredentials
	}

	endpoint := fmt.Sprintf("%s/%s/leadgen_forms?date=%s", s.baseURL, url.PathEscape(s.pageID), url.QueryEscape(date))
	payloads, err := fetchLeads(ctx, s.client, endpoint, s.token)
	if err != nil {
		return nil, fmt.Errorf("social-ad fetch for %s: %w", date, err)
	}

	records := make([]lead.Record, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, Normalize(p.toRecord(), lead.SourceSocialAd, s.now()))
	}
	return records, nil
}

// fetchLeads performs an authenticated GET and decodes the {"leads": [...]}
// envelope both HTTP sources share.
func fetchLeads(ctx context.Context, client *http.Client, endpoint, token string) ([]leadPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var envelope struct {
		Leads []leadPayload `json:"leads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return envelope.Leads, nil
}
