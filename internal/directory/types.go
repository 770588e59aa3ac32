// Package directory supplies organization facts and people search results,
// falling back to built-in data when the provider has nothing.
package directory

import (
	"context"
	"fmt"
	"strings"
)

// Source records where an OrganizationInfo came from.
type Source string

const (
	SourceProvider    Source = "provider"
	SourceBuiltin     Source = "builtin"
	SourcePlaceholder Source = "placeholder"
)

// NoDescription marks an organization whose description is unknown.
const NoDescription = "No description available"

// OrganizationInfo describes an organization.
type OrganizationInfo struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Website     string `json:"website"`
	ProfileURL  string `json:"profile_url"`
	LogoURL     string `json:"logo_url"`
	Source      Source `json:"source"`
}

// Profile is a professional found by a people search.
type Profile struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Location     string   `json:"location"`
	ProfileURL   string   `json:"profile_url"`
	ImageURL     string   `json:"image_url"`
	Expertise    []string `json:"expertise"`
}

// Describe renders the profile as a numbered prompt entry.
func (p Profile) Describe(n int) string {
	name := valueOr(p.Name, "Unknown")
	return fmt.Sprintf("%d. %s\n   Title: %s\n   Organization: %s\n   Location: %s\n   Expertise: %s",
		n, name, valueOr(p.Title, "N/A"), valueOr(p.Organization, "N/A"),
		valueOr(p.Location, "N/A"), valueOr(strings.Join(p.Expertise, ", "), "N/A"))
}

// DescribeProfiles renders up to limit profiles (all when limit <= 0).
func DescribeProfiles(profiles []Profile, limit int) string {
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	parts := make([]string, len(profiles))
	for i, p := range profiles {
		parts[i] = p.Describe(i + 1)
	}
	return strings.Join(parts, "\n\n")
}

// Provider is the external directory service. FindOrganization returns nil, nil
// when the provider has no record.
type Provider interface {
	FindOrganization(ctx context.Context, name string) (*OrganizationInfo, error)
	SearchPeople(ctx context.Context, term string) ([]Profile, error)
}

// OrganizationCache stores provider organization records.
type OrganizationCache interface {
	Get(ctx context.Context, name string) (*OrganizationInfo, error)
	Set(ctx context.Context, name string, info OrganizationInfo) error
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
