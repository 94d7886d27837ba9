package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/sentiment"
)

// Interaction types.
const (
	TypeMeeting = "meeting"
	TypeCall    = "call"
	TypeChat    = "chat"
	TypeOther   = "other"
)

// InteractionTypes lists the recognized types in display order.
var InteractionTypes = []string{TypeMeeting, TypeCall, TypeChat, TypeOther}

// ValidType reports whether t is a recognized interaction type.
func ValidType(t string) bool {
	switch t {
	case TypeMeeting, TypeCall, TypeChat, TypeOther:
		return true
	}
	return false
}

// Sentiment is the stored classification of an interaction.
type Sentiment struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Interaction is a logged event with a profile. Interactions are immutable
// and only removed together with their profile.
type Interaction struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	ProfileID   string    `json:"profileId"`
	ProfileName string    `json:"profileName,omitempty"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Sentiment   Sentiment `json:"sentiment"`
	Emotions    []string  `json:"emotions"`
	KeyPhrases  []string  `json:"keyPhrases"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewInteraction holds the fields for CreateInteraction. An empty Type means
// "other" and a zero Date means now.
type NewInteraction struct {
	ProfileID   string
	Description string
	Type        string
	Date        time.Time
	Sentiment   Sentiment
	Emotions    []string
	KeyPhrases  []string
}

// InteractionFilter narrows QueryInteractions. Zero values are unbounded;
// Start and End are inclusive.
type InteractionFilter struct {
	ProfileID string
	Type      string
	Start     *time.Time
	End       *time.Time
	Limit     int
}

// ValidateNewInteraction checks the caller-supplied fields of in, applying the
// type default. It does not touch the database.
func ValidateNewInteraction(in *NewInteraction) error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return apperr.Validation("description", "description is required")
	}
	if in.ProfileID == "" {
		return apperr.Validation("profileId", "profileId is required")
	}
	if in.Type == "" {
		in.Type = TypeOther
	}
	if !ValidType(in.Type) {
		return apperr.Validation("type", fmt.Sprintf("unknown interaction type %q", in.Type))
	}
	return nil
}

// CreateInteraction persists an interaction for one of the owner's profiles.
// The profile is re-read inside the insert transaction so an interaction is
// never committed against a profile that is already gone.
func (s *Scope) CreateInteraction(ctx context.Context, in NewInteraction) (*Interaction, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ValidateNewInteraction(&in); err != nil {
		return nil, err
	}
	if err := validateSentiment(in.Sentiment); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	date := in.Date
	if date.IsZero() {
		date = now
	}
	date = date.UTC().Truncate(time.Millisecond)

	emotions, err := encodeStrings(in.Emotions)
	if err != nil {
		return nil, err
	}
	phrases, err := encodeStrings(in.KeyPhrases)
	if err != nil {
		return nil, err
	}

	it := &Interaction{
		ID:          uuid.NewString(),
		OwnerID:     s.owner,
		ProfileID:   in.ProfileID,
		Description: in.Description,
		Type:        in.Type,
		Date:        date,
		Sentiment:   in.Sentiment,
		Emotions:    nonNil(in.Emotions),
		KeyPhrases:  nonNil(in.KeyPhrases),
		CreatedAt:   now,
	}

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.getProfile(ctx, tx, in.ProfileID)
		if err != nil {
			return err
		}
		it.ProfileName = p.Name

		_, err = tx.ExecContext(ctx, s.db.rebind(`
			INSERT INTO interactions (id, owner_id, profile_id, description, type, occurred_at,
				sentiment_score, sentiment_label, sentiment_confidence, emotions, key_phrases, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), it.ID, it.OwnerID, it.ProfileID, it.Description, it.Type, date.UnixMilli(),
			it.Sentiment.Score, it.Sentiment.Label, it.Sentiment.Confidence, emotions, phrases, now.UnixMilli())
		if isForeignKeyViolation(err) {
			// The profile was deleted after the check above (READ COMMITTED).
			return apperr.NotFound("profile")
		}
		if err != nil {
			return fmt.Errorf("insert interaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// QueryInteractions returns the owner's interactions matching f, newest
// first. Equal dates are ordered by id so repeated calls return the same
// sequence.
func (s *Scope) QueryInteractions(ctx context.Context, f InteractionFilter) ([]Interaction, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if f.Type != "" && !ValidType(f.Type) {
		return nil, apperr.Validation("type", fmt.Sprintf("unknown interaction type %q", f.Type))
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return nil, apperr.Validation("endDate", "endDate is before startDate")
	}

	query := `
		SELECT i.id, i.owner_id, i.profile_id, p.name, i.description, i.type, i.occurred_at,
			i.sentiment_score, i.sentiment_label, i.sentiment_confidence,
			i.emotions, i.key_phrases, i.created_at
		FROM interactions i
		JOIN profiles p ON p.id = i.profile_id AND p.owner_id = i.owner_id
		WHERE i.owner_id = ?`
	args := []any{s.owner}
	if f.ProfileID != "" {
		query += ` AND i.profile_id = ?`
		args = append(args, f.ProfileID)
	}
	if f.Type != "" {
		query += ` AND i.type = ?`
		args = append(args, f.Type)
	}
	if f.Start != nil {
		query += ` AND i.occurred_at >= ?`
		args = append(args, ceilMilli(*f.Start))
	}
	if f.End != nil {
		query += ` AND i.occurred_at <= ?`
		args = append(args, f.End.UnixMilli())
	}
	query += ` ORDER BY i.occurred_at DESC, i.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	out := []Interaction{}
	for rows.Next() {
		var it Interaction
		var occurred, created int64
		var emotions, phrases string
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.ProfileID, &it.ProfileName, &it.Description, &it.Type,
			&occurred, &it.Sentiment.Score, &it.Sentiment.Label, &it.Sentiment.Confidence,
			&emotions, &phrases, &created); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		it.Date = time.UnixMilli(occurred).UTC()
		it.CreatedAt = time.UnixMilli(created).UTC()
		if it.Emotions, err = decodeStrings(emotions); err != nil {
			return nil, err
		}
		if it.KeyPhrases, err = decodeStrings(phrases); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ceilMilli is t in Unix milliseconds, rounded up so a lower bound never
// admits a date earlier than t.
func ceilMilli(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.After(time.UnixMilli(ms)) {
		ms++
	}
	return ms
}

func validateSentiment(s Sentiment) error {
	if !sentiment.ValidLabel(s.Label) {
		return apperr.Validation("sentiment.label", fmt.Sprintf("unknown sentiment label %q", s.Label))
	}
	if math.IsNaN(s.Score) || s.Score < -1 || s.Score > 1 {
		return apperr.Validation("sentiment.score", "score must be within [-1, 1]")
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return apperr.Validation("sentiment.confidence", "confidence must be within [0, 1]")
	}
	return nil
}

func encodeStrings(v []string) (string, error) {
	b, err := json.Marshal(nonNil(v))
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
