// Package fetch extracts a short description from an organization's website.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

var (
	// ErrNoContent is returned when a page has nothing extractable.
	ErrNoContent = errors.New("no extractable content")
	// ErrBlockedURL is returned for non-HTTP schemes and for hosts that
	// resolve to loopback, private or link-local addresses.
	ErrBlockedURL = errors.New("website not allowed")
)

const (
	maxBody        = 2 << 20
	maxDescription = 400
	minDescription = 40
)

// SiteDescriber fetches homepages and reduces them to a blurb.
type SiteDescriber struct {
	client    *http.Client
	userAgent string

	allowPrivate bool
}

// NewSiteDescriber creates a describer. A zero timeout means 15 seconds.
func NewSiteDescriber(timeout time.Duration) *SiteDescriber {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	s := &SiteDescriber{userAgent: "orgscout/1.0 (organization research)"}
	dialer := &net.Dialer{Timeout: timeout, Control: s.checkDial}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	s.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return checkScheme(req.URL)
		},
	}
	return s
}

func checkScheme(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrBlockedURL, u.Scheme)
	}
	return nil
}

// checkDial runs after name resolution, so redirects and DNS answers are
// checked too.
func (s *SiteDescriber) checkDial(network, address string, _ syscall.RawConn) error {
	if s.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedURL, host)
	}
	return nil
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

// Describe returns the page excerpt, or the opening of its text when the page
// has no excerpt.
func (s *SiteDescriber) Describe(ctx context.Context, website string) (string, error) {
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	pageURL, err := url.Parse(website)
	if err != nil {
		return "", fmt.Errorf("parsing website: %w", err)
	}
	if err := checkScheme(pageURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: %s", pageURL.Host, http.StatusText(resp.StatusCode))
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBody), pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", pageURL.Host, err)
	}

	text := strings.Join(strings.Fields(article.Excerpt), " ")
	if len(text) < minDescription {
		text = strings.Join(strings.Fields(article.TextContent), " ")
	}
	if len(text) < minDescription {
		return "", ErrNoContent
	}
	return truncate(text, maxDescription), nil
}

// truncate cuts text at the last space before limit bytes and adds an
// ellipsis.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
