package directory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/logging"
)

// Describer summarizes an organization's website.
type Describer interface {
	Describe(ctx context.Context, website string) (string, error)
}

// Directory resolves organizations and people, never failing outright.
type Directory struct {
	provider  Provider
	cache     OrganizationCache
	describer Describer
	logger    *zap.Logger
}

// New creates a Directory. provider and cache may both be nil.
func New(provider Provider, cache OrganizationCache, logger *zap.Logger) *Directory {
	return &Directory{provider: provider, cache: cache, logger: logging.OrNop(logger)}
}

// WithDescriber fills in missing provider descriptions from the
// organization's website.
func (d *Directory) WithDescriber(desc Describer) *Directory {
	d.describer = desc
	return d
}

// LookupOrganization returns what is known about name: a cached or provider
// record, a built-in record, or the placeholder.
func (d *Directory) LookupOrganization(ctx context.Context, name string) OrganizationInfo {
	name = strings.TrimSpace(name)
	if name == "" {
		return PlaceholderOrganization(name)
	}

	if d.cache != nil {
		cached, err := d.cache.Get(ctx, name)
		if err != nil {
			d.logger.Warn("organization cache read failed", zap.String("organization", name), zap.Error(err))
		} else if cached != nil {
			return *cached
		}
	}

	if d.provider != nil {
		info, err := d.provider.FindOrganization(ctx, name)
		switch {
		case err != nil:
			d.logger.Warn("organization lookup failed", zap.String("organization", name), zap.Error(err))
		case info != nil:
			info.Source = SourceProvider
			d.describe(ctx, info)
			if d.cache != nil {
				if err := d.cache.Set(ctx, name, *info); err != nil {
					d.logger.Warn("organization cache write failed", zap.String("organization", name), zap.Error(err))
				}
			}
			return *info
		}
	}

	return FallbackOrganization(name)
}

func (d *Directory) describe(ctx context.Context, info *OrganizationInfo) {
	if d.describer == nil || info.Website == "" {
		return
	}
	if info.Description != "" && info.Description != NoDescription {
		return
	}
	text, err := d.describer.Describe(ctx, info.Website)
	if err != nil {
		d.logger.Debug("website description unavailable", zap.String("website", info.Website), zap.Error(err))
		return
	}
	if text != "" {
		info.Description = text
	}
}

// SearchPeople queries the provider for term, scoped to organization when one
// is given. Failures yield an empty list.
func (d *Directory) SearchPeople(ctx context.Context, term, organization string) []Profile {
	if d.provider == nil {
		return []Profile{}
	}

	query := term
	if organization != "" {
		query = term + " at " + organization
	}

	profiles, err := d.provider.SearchPeople(ctx, query)
	if err != nil {
		d.logger.Warn("people search failed", zap.String("term", query), zap.Error(err))
		return []Profile{}
	}
	if len(profiles) == 0 {
		d.logger.Info("no profiles found", zap.String("term", query))
		return []Profile{}
	}
	return profiles
}

// SyntheticProfiles exposes the package generator through the Directory.
func (d *Directory) SyntheticProfiles(role, organization string) []Profile {
	return SyntheticProfiles(role, organization)
}
