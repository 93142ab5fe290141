package condo

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/ids"
)

// PersonKind classifies a person linked to a condominium.
type PersonKind string

const (
	KindResident PersonKind = "resident"
	KindOwner    PersonKind = "owner"
	KindStaff    PersonKind = "staff"
	KindVisitor  PersonKind = "visitor"
)

func (k PersonKind) valid() bool {
	switch k {
	case KindResident, KindOwner, KindStaff, KindVisitor:
		return true
	}
	return false
}

type Person struct {
	ID            string     `json:"id"`
	CondominiumID string     `json:"condominium_id"`
	Name          string     `json:"name"`
	Document      string     `json:"document"`
	Kind          PersonKind `json:"kind"`
	Block         string     `json:"block,omitempty"`
	Apartment     string     `json:"apartment,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (p Person) RecordID() string      { return p.ID }
func (p Person) RecordTime() time.Time { return p.CreatedAt }

// PeopleFilter narrows ListPeople.
type PeopleFilter struct {
	CondominiumID string
	Kind          PersonKind
	Query         string
}

func (s *Service) CreatePerson(ctx context.Context, p Person) (Person, error) {
	if err := normalizePerson(&p); err != nil {
		return Person{}, err
	}
	now := s.now().UTC()
	p.ID = ids.New()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.people.Put(ctx, p); err != nil {
		return Person{}, mapErr(err)
	}
	return p, nil
}

func (s *Service) UpdatePerson(ctx context.Context, id string, p Person) (Person, error) {
	cur, err := s.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	if err := normalizePerson(&p); err != nil {
		return Person{}, err
	}
	p.ID, p.CreatedAt = cur.ID, cur.CreatedAt
	p.UpdatedAt = s.now().UTC()
	if err := s.people.Put(ctx, p); err != nil {
		return Person{}, mapErr(err)
	}
	return p, nil
}

func (s *Service) GetPerson(ctx context.Context, id string) (Person, error) {
	p, err := s.people.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Person{}, mapErr(err)
	}
	return p, nil
}

func (s *Service) DeletePerson(ctx context.Context, id string) error {
	return mapErr(s.people.Delete(ctx, strings.TrimSpace(id)))
}

// ListPeople returns people matching f ordered by name.
func (s *Service) ListPeople(ctx context.Context, f PeopleFilter) ([]Person, error) {
	var (
		all []Person
		err error
	)
	if f.CondominiumID != "" {
		all, err = s.people.Find(ctx, "condominium_id", f.CondominiumID, func(p Person) bool {
			return p.CondominiumID == f.CondominiumID
		})
	} else {
		all, err = s.people.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Person, 0, len(all))
	for _, p := range all {
		if f.Kind != "" && p.Kind != f.Kind {
			continue
		}
		if q != "" && !containsFold(q, p.Name, p.Document, p.Apartment, p.Email) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Person) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func normalizePerson(p *Person) error {
	p.CondominiumID = strings.TrimSpace(p.CondominiumID)
	p.Name = strings.TrimSpace(p.Name)
	if p.CondominiumID == "" {
		return fmt.Errorf("%w: condominium_id is required", ErrInvalidInput)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p.Kind = PersonKind(strings.ToLower(strings.TrimSpace(string(p.Kind))))
	if p.Kind == "" {
		p.Kind = KindResident
	}
	if !p.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, p.Kind)
	}
	p.Document = strings.TrimSpace(p.Document)
	p.Block = strings.TrimSpace(p.Block)
	p.Apartment = strings.TrimSpace(p.Apartment)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return nil
}
