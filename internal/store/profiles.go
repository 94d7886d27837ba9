package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/rapport/internal/apperr"
)

// Profile categories.
const (
	CategoryFriend    = "friend"
	CategoryFamily    = "family"
	CategoryColleague = "colleague"
	CategoryOther     = "other"
)

var validCategories = map[string]bool{
	CategoryFriend: true, CategoryFamily: true, CategoryColleague: true, CategoryOther: true,
}

// ValidCategory reports whether c is a recognized profile category.
func ValidCategory(c string) bool {
	return validCategories[c]
}

// Profile sorts for ListProfiles.
const (
	SortName   = "name"
	SortRecent = "recent"
)

// Profile is a person tracked by an owner.
type Profile struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProfile holds the fields for CreateProfile. An empty Category means
// "other".
type NewProfile struct {
	Name     string
	Category string
	Notes    string
}

// ProfilePatch holds optional changes for UpdateProfile. Nil fields are left
// unchanged.
type ProfilePatch struct {
	Name     *string
	Category *string
	Notes    *string
}

// ProfileFilter narrows ListProfiles. Search is a case-insensitive substring
// match on name.
type ProfileFilter struct {
	Category string
	Search   string
	Sort     string
}

// ProfileSummary is a profile with a light activity rollup.
type ProfileSummary struct {
	Profile
	Stats ProfileActivity `json:"stats"`
}

// ProfileActivity counts a profile's interactions and shows the latest one.
type ProfileActivity struct {
	InteractionCount int                 `json:"interactionCount"`
	LastInteraction  *InteractionSummary `json:"lastInteraction"`
}

// InteractionSummary is the short form of an interaction used in listings.
type InteractionSummary struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Sentiment   Sentiment `json:"sentiment"`
}

const profileColumns = `id, owner_id, name, category, notes, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	var p Profile
	var created, updated int64
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.Notes, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

// CreateProfile inserts a new profile. The name must be unique for the owner.
func (s *Scope) CreateProfile(ctx context.Context, in NewProfile) (*Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	category := in.Category
	if category == "" {
		category = CategoryOther
	}
	if !ValidCategory(category) {
		return nil, apperr.Validation("category", fmt.Sprintf("unknown category %q", category))
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := &Profile{
		ID:        uuid.NewString(),
		OwnerID:   s.owner,
		Name:      name,
		Category:  category,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := s.nameTaken(ctx, tx, name, "")
		if err != nil {
			return err
		}
		if taken {
			return duplicateName(name)
		}
		_, err = tx.ExecContext(ctx, s.db.rebind(`
			INSERT INTO profiles (`+profileColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`), p.ID, p.OwnerID, p.Name, p.Category, p.Notes, now.UnixMilli(), now.UnixMilli())
		if isUniqueViolation(err) {
			return duplicateName(name)
		}
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile returns the owner's profile by id.
func (s *Scope) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.getProfile(ctx, s.db, id)
}

func (s *Scope) getProfile(ctx context.Context, q queryer, id string) (*Profile, error) {
	p, err := scanProfile(q.QueryRowContext(ctx, s.db.rebind(`
		SELECT `+profileColumns+` FROM profiles WHERE id = ? AND owner_id = ?
	`), id, s.owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("profile")
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies patch. Renaming re-checks name uniqueness against the
// owner's other profiles.
func (s *Scope) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*Profile, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("name", "name cannot be empty")
	}
	if patch.Category != nil && !ValidCategory(*patch.Category) {
		return nil, apperr.Validation("category", fmt.Sprintf("unknown category %q", *patch.Category))
	}

	var out *Profile
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.getProfile(ctx, tx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name != p.Name {
				taken, err := s.nameTaken(ctx, tx, name, p.ID)
				if err != nil {
					return err
				}
				if taken {
					return duplicateName(name)
				}
			}
			p.Name = name
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

		_, err = tx.ExecContext(ctx, s.db.rebind(`
			UPDATE profiles SET name = ?, category = ?, notes = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?
		`), p.Name, p.Category, p.Notes, p.UpdatedAt.UnixMilli(), p.ID, s.owner)
		if isUniqueViolation(err) {
			return duplicateName(p.Name)
		}
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProfile removes the profile and all of its interactions in one
// transaction and returns how many interactions went with it. Any failure
// after the profile is found rolls back both and is reported as
// deletion_failed.
func (s *Scope) DeleteProfile(ctx context.Context, id string) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var removed int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getProfile(ctx, tx, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, s.db.rebind(
			`DELETE FROM interactions WHERE profile_id = ? AND owner_id = ?`), id, s.owner)
		if err != nil {
			return fmt.Errorf("delete interactions: %w", err)
		}
		removed, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, s.db.rebind(
			`DELETE FROM profiles WHERE id = ? AND owner_id = ?`), id, s.owner)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("delete profile: %d rows affected", n)
		}
		return nil
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return 0, err
	}
	if err != nil {
		return 0, apperr.DeletionFailed(err)
	}
	return removed, nil
}

// ListProfiles returns the owner's profiles with interaction counts and the
// most recent interaction of each.
func (s *Scope) ListProfiles(ctx context.Context, f ProfileFilter) ([]ProfileSummary, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, apperr.Validation("category", fmt.Sprintf("unknown category %q", f.Category))
	}

	query := `
		SELECT p.id, p.owner_id, p.name, p.category, p.notes, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM interactions i WHERE i.owner_id = p.owner_id AND i.profile_id = p.id)
		FROM profiles p
		WHERE p.owner_id = ?`
	args := []any{s.owner}
	if f.Category != "" {
		query += ` AND p.category = ?`
		args = append(args, f.Category)
	}
	if f.Search != "" {
		query += ` AND LOWER(p.name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	switch f.Sort {
	case SortRecent:
		query += ` ORDER BY p.created_at DESC, p.id`
	case SortName, "":
		query += ` ORDER BY p.name, p.id`
	default:
		return nil, apperr.Validation("sort", fmt.Sprintf("unknown sort %q", f.Sort))
	}

	rows, err := s.db.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []ProfileSummary
	index := map[string]int{}
	for rows.Next() {
		var ps ProfileSummary
		var created, updated int64
		if err := rows.Scan(&ps.ID, &ps.OwnerID, &ps.Name, &ps.Category, &ps.Notes,
			&created, &updated, &ps.Stats.InteractionCount); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		ps.CreatedAt = time.UnixMilli(created).UTC()
		ps.UpdatedAt = time.UnixMilli(updated).UTC()
		index[ps.ID] = len(out)
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	latest, err := s.latestInteractions(ctx)
	if err != nil {
		return nil, err
	}
	for profileID, summary := range latest {
		if i, ok := index[profileID]; ok {
			out[i].Stats.LastInteraction = summary
		}
	}
	return out, nil
}

// latestInteractions returns the most recent interaction per profile.
func (s *Scope) latestInteractions(ctx context.Context) (map[string]*InteractionSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.db.rebind(`
		SELECT i.profile_id, i.id, i.occurred_at, i.description,
			i.sentiment_score, i.sentiment_label, i.sentiment_confidence
		FROM interactions i
		WHERE i.owner_id = ?
			AND i.occurred_at = (
				SELECT MAX(j.occurred_at) FROM interactions j
				WHERE j.owner_id = i.owner_id AND j.profile_id = i.profile_id
			)
		ORDER BY i.profile_id, i.id DESC
	`), s.owner)
	if err != nil {
		return nil, fmt.Errorf("latest interactions: %w", err)
	}
	defer rows.Close()

	out := map[string]*InteractionSummary{}
	for rows.Next() {
		var profileID string
		var occurred int64
		var sum InteractionSummary
		if err := rows.Scan(&profileID, &sum.ID, &occurred, &sum.Description,
			&sum.Sentiment.Score, &sum.Sentiment.Label, &sum.Sentiment.Confidence); err != nil {
			return nil, fmt.Errorf("scan latest interaction: %w", err)
		}
		// Same-millisecond ties: the highest id wins, matching QueryInteractions order.
		if _, seen := out[profileID]; seen {
			continue
		}
		sum.Date = time.UnixMilli(occurred).UTC()
		out[profileID] = &sum
	}
	return out, rows.Err()
}

// nameTaken reports whether another of the owner's profiles uses name.
func (s *Scope) nameTaken(ctx context.Context, q queryer, name, excludeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, s.db.rebind(`
		SELECT COUNT(*) FROM profiles WHERE owner_id = ? AND name = ? AND id <> ?
	`), s.owner, name, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check profile name: %w", err)
	}
	return count > 0, nil
}

func duplicateName(name string) error {
	return apperr.DuplicateName("name", fmt.Sprintf("a profile named %q already exists", name))
}

// escapeLike escapes LIKE wildcards so search input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
