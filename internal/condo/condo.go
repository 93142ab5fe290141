// Package condo manages condominiums, their blocks and the people living or
// working in them.
package condo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/remote"
)

var (
	ErrNotFound     = errors.New("condo: not found")
	ErrInvalidInput = errors.New("condo: invalid input")
	ErrConflict     = errors.New("condo: conflict")
)

// Block is a building inside a condominium.
type Block struct {
	Name       string `json:"name"`
	Apartments int    `json:"apartments"`
}

type Condominium struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CNPJ        string    `json:"cnpj,omitempty"`
	Street      string    `json:"street"`
	Number      string    `json:"number"`
	Complement  string    `json:"complement"`
	District    string    `json:"district"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zip_code"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	ManagerName string    `json:"manager_name"`
	Blocks      []Block   `json:"blocks"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Condominium) RecordID() string      { return c.ID }
func (c Condominium) RecordTime() time.Time { return c.CreatedAt }

// TotalApartments sums the apartments of every block.
func (c Condominium) TotalApartments() int {
	total := 0
	for _, b := range c.Blocks {
		total += b.Apartments
	}
	return total
}

// Filter narrows ListCondominiums. Scope restricts results to one id.
type Filter struct {
	Query  string
	Active *bool
	Scope  string
}

// Service owns condominium and people records.
type Service struct {
	condos remote.Repo[Condominium]
	people remote.Repo[Person]
	now    func() time.Time
}

func NewService(condos remote.Repo[Condominium], people remote.Repo[Person]) *Service {
	return &Service{condos: condos, people: people, now: time.Now}
}

// CreateCondominium validates c and stores it under a fresh id.
func (s *Service) CreateCondominium(ctx context.Context, c Condominium) (Condominium, error) {
	if err := normalize(&c); err != nil {
		return Condominium{}, err
	}
	now := s.now().UTC()
	c.ID = ids.New()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.condos.Put(ctx, c); err != nil {
		return Condominium{}, mapErr(err)
	}
	return c, nil
}

// UpdateCondominium replaces the editable fields of the record.
func (s *Service) UpdateCondominium(ctx context.Context, id string, c Condominium) (Condominium, error) {
	cur, err := s.GetCondominium(ctx, id)
	if err != nil {
		return Condominium{}, err
	}
	if err := normalize(&c); err != nil {
		return Condominium{}, err
	}
	c.ID, c.CreatedAt = cur.ID, cur.CreatedAt
	c.UpdatedAt = s.now().UTC()
	if err := s.condos.Put(ctx, c); err != nil {
		return Condominium{}, mapErr(err)
	}
	return c, nil
}

func (s *Service) GetCondominium(ctx context.Context, id string) (Condominium, error) {
	c, err := s.condos.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Condominium{}, mapErr(err)
	}
	return c, nil
}

// DeleteCondominium removes the record only; dependent records are kept.
func (s *Service) DeleteCondominium(ctx context.Context, id string) error {
	return mapErr(s.condos.Delete(ctx, strings.TrimSpace(id)))
}

// ListCondominiums returns matching condominiums ordered by name.
func (s *Service) ListCondominiums(ctx context.Context, f Filter) ([]Condominium, error) {
	all, err := s.condos.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Condominium, 0, len(all))
	for _, c := range all {
		if f.Scope != "" && c.ID != f.Scope {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		if q != "" && !containsFold(q, c.Name, c.City, c.District, c.CNPJ, c.ManagerName) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Condominium) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

// AddBlock appends a block, rejecting duplicate names.
func (s *Service) AddBlock(ctx context.Context, id string, b Block) (Condominium, error) {
	c, err := s.GetCondominium(ctx, id)
	if err != nil {
		return Condominium{}, err
	}
	c.Blocks = append(c.Blocks, b)
	if err := normalize(&c); err != nil {
		return Condominium{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.condos.Put(ctx, c); err != nil {
		return Condominium{}, mapErr(err)
	}
	return c, nil
}

// RemoveBlock drops the block named name (case-insensitive).
func (s *Service) RemoveBlock(ctx context.Context, id, name string) (Condominium, error) {
	c, err := s.GetCondominium(ctx, id)
	if err != nil {
		return Condominium{}, err
	}
	idx := slices.IndexFunc(c.Blocks, func(b Block) bool { return strings.EqualFold(b.Name, strings.TrimSpace(name)) })
	if idx < 0 {
		return Condominium{}, fmt.Errorf("%w: block %q", ErrNotFound, name)
	}
	c.Blocks = slices.Delete(c.Blocks, idx, idx+1)
	c.UpdatedAt = s.now().UTC()
	if err := s.condos.Put(ctx, c); err != nil {
		return Condominium{}, mapErr(err)
	}
	return c, nil
}

func normalize(c *Condominium) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	if c.State != "" && (len(c.State) != 2 || !isLetters(c.State)) {
		return fmt.Errorf("%w: state must be a two-letter code", ErrInvalidInput)
	}
	if c.CNPJ = strings.TrimSpace(c.CNPJ); c.CNPJ != "" {
		if digits := onlyDigits(c.CNPJ); len(digits) != 14 {
			return fmt.Errorf("%w: cnpj must have 14 digits", ErrInvalidInput)
		}
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	for _, p := range []*string{&c.Street, &c.Number, &c.Complement, &c.District, &c.City, &c.ZipCode, &c.Phone, &c.ManagerName} {
		*p = strings.TrimSpace(*p)
	}
	seen := make(map[string]struct{}, len(c.Blocks))
	for i := range c.Blocks {
		b := &c.Blocks[i]
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			return fmt.Errorf("%w: block name is required", ErrInvalidInput)
		}
		if b.Apartments < 0 {
			return fmt.Errorf("%w: block %q has negative apartments", ErrInvalidInput, b.Name)
		}
		key := strings.ToLower(b.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate block %q", ErrConflict, b.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case remote.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, remote.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
