package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/orgscout/internal/logging"
)

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	BaseURL           string
	Host              string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// HTTPProvider talks to a RapidAPI-style directory service.
type HTTPProvider struct {
	baseURL string
	host    string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPProvider creates a provider client. A non-positive rate disables limiting.
func NewHTTPProvider(cfg HTTPConfig, logger *zap.Logger) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		host:    cfg.Host,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logging.OrNop(logger),
	}
}

// IsConfigured reports whether an API key is set.
func (p *HTTPProvider) IsConfigured() bool {
	return p.apiKey != ""
}

type companyItem struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Website     string `json:"website"`
	LinkedInURL string `json:"linkedin_url"`
	LogoURL     string `json:"logo_url"`
}

type personItem struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	LinkedInURL string   `json:"linkedin_url"`
	ImageURL    string   `json:"image_url"`
	Expertise   []string `json:"expertise"`
}

// FindOrganization returns the first matching company, or nil when the
// service has none.
func (p *HTTPProvider) FindOrganization(ctx context.Context, name string) (*OrganizationInfo, error) {
	var resp struct {
		Items []companyItem `json:"items"`
	}
	found, err := p.get(ctx, "/company", url.Values{"company_name": {name}}, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	return &OrganizationInfo{
		Name:        valueOr(item.Name, name),
		Industry:    valueOr(item.Industry, "Unknown"),
		Location:    valueOr(item.Location, "Unknown"),
		Description: valueOr(item.Description, NoDescription),
		Website:     item.Website,
		ProfileURL:  item.LinkedInURL,
		LogoURL:     item.LogoURL,
		Source:      SourceProvider,
	}, nil
}

// SearchPeople returns the profiles matching term.
func (p *HTTPProvider) SearchPeople(ctx context.Context, term string) ([]Profile, error) {
	var resp struct {
		Items []personItem `json:"items"`
	}
	found, err := p.get(ctx, "/people/search", url.Values{"search_term": {term}}, &resp)
	if err != nil || !found {
		return nil, err
	}

	profiles := make([]Profile, 0, len(resp.Items))
	for _, item := range resp.Items {
		expertise := item.Expertise
		if expertise == nil {
			expertise = []string{}
		}
		profiles = append(profiles, Profile{
			Name:         valueOr(item.Name, "Unknown"),
			Title:        item.Title,
			Organization: item.Company,
			Location:     item.Location,
			ProfileURL:   item.LinkedInURL,
			ImageURL:     item.ImageURL,
			Expertise:    expertise,
		})
	}
	return profiles, nil
}

// get performs a rate-limited GET. A non-200 status is reported as not found.
func (p *HTTPProvider) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", p.apiKey)
	req.Header.Set("X-RapidAPI-Host", p.host)

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		p.logger.Warn("directory request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(body))))
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return true, nil
}
