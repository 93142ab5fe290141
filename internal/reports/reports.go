// Package reports records security incidents observed in condominiums.
package reports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/remote"
)

var (
	ErrNotFound     = errors.New("reports: not found")
	ErrInvalidInput = errors.New("reports: invalid input")
)

// Collection is the local collection name for security reports.
const Collection = "security_reports"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// ParseSeverity normalises s; empty means medium.
func ParseSeverity(s string) (Severity, bool) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SeverityMedium, true
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v, true
	}
	return "", false
}

// ParseStatus normalises s; empty means open.
func ParseStatus(s string) (Status, bool) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return StatusOpen, true
	case StatusOpen, StatusInvestigating, StatusResolved, StatusClosed:
		return v, true
	}
	return "", false
}

// Pending reports whether the incident still needs attention.
func (s Status) Pending() bool { return s == StatusOpen || s == StatusInvestigating }

type SecurityReport struct {
	ID            string    `json:"id"`
	CondominiumID string    `json:"condominium_id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags,omitempty"`
	Severity      Severity  `json:"severity"`
	Status        Status    `json:"status"`
	Description   string    `json:"description"`
	Location      string    `json:"location,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r SecurityReport) RecordID() string      { return r.ID }
func (r SecurityReport) RecordTime() time.Time { return r.CreatedAt }

// Update carries optional changes; nil fields are left untouched.
type Update struct {
	Title       *string
	Category    *string
	Tags        *[]string
	Severity    *string
	Status      *string
	Description *string
	Location    *string
}

// Filter narrows List. From and To bound OccurredAt inclusively.
type Filter struct {
	CondominiumID string
	Severity      Severity
	Status        Status
	Category      string
	From, To      *time.Time
	Query         string
}

type Service struct {
	repo remote.Repo[SecurityReport]
	now  func() time.Time
}

func NewService(repo remote.Repo[SecurityReport]) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create stores a new report authored by createdBy.
func (s *Service) Create(ctx context.Context, r SecurityReport, createdBy string) (SecurityReport, error) {
	r.CondominiumID = strings.TrimSpace(r.CondominiumID)
	if r.CondominiumID == "" {
		return SecurityReport{}, fmt.Errorf("%w: condominium_id is required", ErrInvalidInput)
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return SecurityReport{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	sev, ok := ParseSeverity(string(r.Severity))
	if !ok {
		return SecurityReport{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, r.Severity)
	}
	st, ok := ParseStatus(string(r.Status))
	if !ok {
		return SecurityReport{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, r.Status)
	}
	now := s.now().UTC()
	r.ID = ids.New()
	r.Severity, r.Status = sev, st
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Tags = normalizeTags(r.Tags)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if r.OccurredAt.IsZero() {
		r.OccurredAt = now
	}
	r.CreatedBy = createdBy
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.repo.Put(ctx, r); err != nil {
		return SecurityReport{}, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (SecurityReport, error) {
	r, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if remote.IsNotFound(err) {
			return SecurityReport{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return SecurityReport{}, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, id string, upd Update) (SecurityReport, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return SecurityReport{}, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return SecurityReport{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		r.Title = title
	}
	if upd.Category != nil {
		r.Category = strings.ToLower(strings.TrimSpace(*upd.Category))
	}
	if upd.Tags != nil {
		r.Tags = normalizeTags(*upd.Tags)
	}
	if upd.Severity != nil {
		sev, ok := ParseSeverity(*upd.Severity)
		if !ok {
			return SecurityReport{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, *upd.Severity)
		}
		r.Severity = sev
	}
	if upd.Status != nil {
		st, ok := ParseStatus(*upd.Status)
		if !ok {
			return SecurityReport{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
		}
		r.Status = st
	}
	if upd.Description != nil {
		r.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Location != nil {
		r.Location = strings.TrimSpace(*upd.Location)
	}
	r.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, r); err != nil {
		return SecurityReport{}, err
	}
	return r, nil
}

// UpdateStatus is Update restricted to the status field.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (SecurityReport, error) {
	return s.Update(ctx, id, Update{Status: &status})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if remote.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// List returns matching reports, most recent occurrence first.
func (s *Service) List(ctx context.Context, f Filter) ([]SecurityReport, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	category := strings.ToLower(strings.TrimSpace(f.Category))
	out := make([]SecurityReport, 0, len(all))
	for _, r := range all {
		switch {
		case f.CondominiumID != "" && r.CondominiumID != f.CondominiumID,
			f.Severity != "" && r.Severity != f.Severity,
			f.Status != "" && r.Status != f.Status,
			category != "" && r.Category != category,
			f.From != nil && r.OccurredAt.Before(*f.From),
			f.To != nil && r.OccurredAt.After(*f.To),
			q != "" && !matches(q, r):
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b SecurityReport) int { return b.OccurredAt.Compare(a.OccurredAt) })
	return out, nil
}

func matches(q string, r SecurityReport) bool {
	if strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q) ||
		strings.Contains(strings.ToLower(r.Location), q) {
		return true
	}
	return slices.Contains(r.Tags, q)
}

func normalizeTags(in []string) []string {
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
