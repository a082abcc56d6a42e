package lifecycle

import (
	"strconv"
	"strings"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"github.com/lib/pq"
)

// Draft is the unvalidated input of Create. Budget and Deadline are kept as text so that
// both JSON numbers and numeric strings are accepted.
type Draft struct {
	Title       string
	Description string
	Budget      string
	Deadline    string
	Skills      []string
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// Validate turns a draft into an open request owned by ownerID.
// now decides whether the deadline is in the past; a date-only deadline of today is accepted.
func Validate(d Draft, ownerID string, now time.Time) (*models.ServiceRequest, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, errs.Validation("title is required")
	}
	description := strings.TrimSpace(d.Description)
	if description == "" {
		return nil, errs.Validation("description is required")
	}

	budget, err := ParseBudget(d.Budget)
	if err != nil {
		return nil, err
	}
	deadline, err := ParseDeadline(d.Deadline, now)
	if err != nil {
		return nil, err
	}
	skills := NormalizeSkills(d.Skills)
	if len(skills) == 0 {
		return nil, errs.Validation("at least one skill is required")
	}

	return &models.ServiceRequest{
		Title:       title,
		Description: description,
		Budget:      budget,
		Deadline:    deadline,
		Skills:      skills,
		Status:      models.RequestStatusOpen,
		OwnerID:     ownerID,
	}, nil
}

func ParseBudget(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errs.Validation("budget is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.Validation("budget %q is not a number", raw)
	}
	if !(v > 0) || v > 1e12 {
		return 0, errs.Validation("budget must be a positive number")
	}
	return v, nil
}

func ParseDeadline(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errs.Validation("deadline is required")
	}
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, raw, now.Location())
		if err != nil {
			continue
		}
		floor := now
		if layout == "2006-01-02" {
			y, m, d := now.Date()
			floor = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		}
		if t.Before(floor) {
			return time.Time{}, errs.Validation("deadline must not be in the past")
		}
		return t.UTC(), nil
	}
	return time.Time{}, errs.Validation("deadline %q is not a valid date", raw)
}

// NormalizeSkills trims, drops blanks and collapses duplicates, keeping first-seen order.
func NormalizeSkills(in []string) pq.StringArray {
	seen := make(map[string]bool, len(in))
	out := make(pq.StringArray, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
