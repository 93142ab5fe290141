package maintenance

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
)

type DefectStatus string

const (
	DefectOpen       DefectStatus = "open"
	DefectInProgress DefectStatus = "in_progress"
	DefectResolved   DefectStatus = "resolved"
	DefectClosed     DefectStatus = "closed"
)

// ParseDefectStatus normalises s; empty means open.
func ParseDefectStatus(s string) (DefectStatus, bool) {
	switch st := DefectStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return DefectOpen, true
	case DefectOpen, DefectInProgress, DefectResolved, DefectClosed:
		return st, true
	}
	return "", false
}

// Done reports resolved or closed.
func (s DefectStatus) Done() bool { return s == DefectResolved || s == DefectClosed }

type Defect struct {
	ID            string       `json:"id"`
	CondominiumID string       `json:"condominium_id"`
	Title         string       `json:"title"`
	Category      string       `json:"category"`
	Location      string       `json:"location"`
	Priority      Priority     `json:"priority"`
	Status        DefectStatus `json:"status"`
	Description   string       `json:"description"`
	ReportedBy    string       `json:"reported_by"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (d Defect) RecordID() string      { return d.ID }
func (d Defect) RecordTime() time.Time { return d.CreatedAt }

// DefectUpdate carries optional changes; nil fields are left untouched.
type DefectUpdate struct {
	Title       *string
	Category    *string
	Location    *string
	Priority    *string
	Status      *string
	Description *string
}

// DefectFilter narrows ListDefects.
type DefectFilter struct {
	CondominiumID string
	Priority      Priority
	Status        DefectStatus
	Category      string
	From, To      *time.Time
	Query         string
}

// CreateDefect stores a new defect reported by reportedBy.
func (s *Service) CreateDefect(ctx context.Context, d Defect, reportedBy string) (Defect, error) {
	d.CondominiumID = strings.TrimSpace(d.CondominiumID)
	d.Title = strings.TrimSpace(d.Title)
	if d.CondominiumID == "" {
		return Defect{}, fmt.Errorf("%w: condominium_id is required", ErrInvalidInput)
	}
	if d.Title == "" {
		return Defect{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	p, ok := ParsePriority(string(d.Priority))
	if !ok {
		return Defect{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, d.Priority)
	}
	st, ok := ParseDefectStatus(string(d.Status))
	if !ok {
		return Defect{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, d.Status)
	}
	now := s.now().UTC()
	d.ID = ids.New()
	d.Priority, d.Status = p, st
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	d.Location = strings.TrimSpace(d.Location)
	d.Description = strings.TrimSpace(d.Description)
	d.ReportedBy = reportedBy
	d.ResolvedAt = nil
	if st.Done() {
		d.ResolvedAt = &now
	}
	d.CreatedAt, d.UpdatedAt = now, now
	if err := s.defects.Put(ctx, d); err != nil {
		return Defect{}, err
	}
	return d, nil
}

func (s *Service) GetDefect(ctx context.Context, id string) (Defect, error) {
	d, err := s.defects.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Defect{}, notFound(err, "defect", id)
	}
	return d, nil
}

// UpdateDefect applies upd. Moving to resolved or closed stamps ResolvedAt;
// reopening clears it.
func (s *Service) UpdateDefect(ctx context.Context, id string, upd DefectUpdate) (Defect, error) {
	d, err := s.GetDefect(ctx, id)
	if err != nil {
		return Defect{}, err
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return Defect{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		d.Title = title
	}
	if upd.Category != nil {
		d.Category = strings.ToLower(strings.TrimSpace(*upd.Category))
	}
	if upd.Location != nil {
		d.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.Description != nil {
		d.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		p, ok := ParsePriority(*upd.Priority)
		if !ok {
			return Defect{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *upd.Priority)
		}
		d.Priority = p
	}
	now := s.now().UTC()
	if upd.Status != nil {
		st, ok := ParseDefectStatus(*upd.Status)
		if !ok {
			return Defect{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
		}
		switch {
		case st.Done() && d.ResolvedAt == nil:
			d.ResolvedAt = &now
		case !st.Done():
			d.ResolvedAt = nil
		}
		d.Status = st
	}
	d.UpdatedAt = now
	if err := s.defects.Put(ctx, d); err != nil {
		return Defect{}, err
	}
	return d, nil
}

func (s *Service) DeleteDefect(ctx context.Context, id string) error {
	if err := s.defects.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return notFound(err, "defect", id)
	}
	return nil
}

// ListDefects returns matching defects, newest first.
func (s *Service) ListDefects(ctx context.Context, f DefectFilter) ([]Defect, error) {
	all, err := s.defects.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	category := strings.ToLower(strings.TrimSpace(f.Category))
	out := make([]Defect, 0, len(all))
	for _, d := range all {
		switch {
		case f.CondominiumID != "" && d.CondominiumID != f.CondominiumID,
			f.Priority != "" && d.Priority != f.Priority,
			f.Status != "" && d.Status != f.Status,
			category != "" && d.Category != category,
			f.From != nil && d.CreatedAt.Before(*f.From),
			f.To != nil && d.CreatedAt.After(*f.To),
			q != "" && !containsFold(q, d.Title, d.Description, d.Location):
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Defect) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
