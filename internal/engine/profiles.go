package engine

import (
	"context"

	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
)

// recentLimit is how many interactions GetProfile includes.
const recentLimit = 5

// ProfileDetail is a profile with its rollup and latest interactions.
type ProfileDetail struct {
	Profile            *store.Profile      `json:"profile"`
	Stats              Stats               `json:"stats"`
	RecentInteractions []store.Interaction `json:"recentInteractions"`
}

// CreateProfile adds a profile for the owner.
func (e *Engine) CreateProfile(ctx context.Context, ownerID string, in store.NewProfile) (*store.Profile, error) {
	p, err := e.scope(ownerID).CreateProfile(ctx, in)
	if err != nil {
		return nil, err
	}
	e.Log.Info().Str("owner", ownerID).Str("profile", p.ID).Msg("profile created")
	return p, nil
}

// UpdateProfile changes a profile's name, category or notes.
func (e *Engine) UpdateProfile(ctx context.Context, ownerID, profileID string, patch store.ProfilePatch) (*store.Profile, error) {
	return e.scope(ownerID).UpdateProfile(ctx, profileID, patch)
}

// GetProfile returns the profile with its stats and most recent interactions.
func (e *Engine) GetProfile(ctx context.Context, ownerID, profileID string) (*ProfileDetail, error) {
	s := e.scope(ownerID)
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	items, err := s.QueryInteractions(ctx, store.InteractionFilter{ProfileID: profileID})
	if err != nil {
		return nil, err
	}

	recent := items
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	return &ProfileDetail{
		Profile:            p,
		Stats:              ComputeStats(items),
		RecentInteractions: recent,
	}, nil
}

// ListProfiles returns the owner's profiles with activity summaries.
func (e *Engine) ListProfiles(ctx context.Context, ownerID string, f store.ProfileFilter) ([]store.ProfileSummary, error) {
	out, err := e.scope(ownerID).ListProfiles(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.ProfileSummary{}
	}
	return out, nil
}

// DeleteProfile removes a profile and all its interactions atomically.
//
// A delete racing an in-flight SubmitInteraction for the same profile is
// settled by commit order: if the delete commits first, the insert's
// in-transaction profile check fails with not_found; if the insert commits
// first, the delete removes it along with the rest.
func (e *Engine) DeleteProfile(ctx context.Context, ownerID, profileID string) error {
	removed, err := e.scope(ownerID).DeleteProfile(ctx, profileID)
	if err != nil {
		e.Log.Warn().Err(err).Str("owner", ownerID).Str("profile", profileID).Msg("profile delete failed")
		return err
	}
	metrics.ProfilesDeletedTotal.Inc()
	e.Log.Info().Str("owner", ownerID).Str("profile", profileID).
		Int64("interactions", removed).Msg("profile deleted")
	return nil
}
