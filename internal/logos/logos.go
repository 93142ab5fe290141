// Package logos stores the branding images shown on the dashboard, login
// screen, reports and browser tab.
package logos

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/upsolucions/up-control-access/internal/blob"
	"github.com/upsolucions/up-control-access/internal/ids"
	"github.com/upsolucions/up-control-access/internal/obs"
	"github.com/upsolucions/up-control-access/internal/remote"
)

var (
	ErrNotFound     = errors.New("logos: not found")
	ErrInvalidInput = errors.New("logos: invalid input")
)

// Type is the placement a logo is used for.
type Type string

const (
	TypeMain    Type = "main"
	TypeReport  Type = "report"
	TypeFavicon Type = "favicon"
	TypeLogin   Type = "login"
)

func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeMain, TypeReport, TypeFavicon, TypeLogin:
		return t, true
	}
	return "", false
}

type Logo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	MimeType  string    `json:"mime_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Data      string    `json:"data,omitempty"`
	ObjectKey string    `json:"object_key,omitempty"`
	Active    bool      `json:"active"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l Logo) RecordID() string      { return l.ID }
func (l Logo) RecordTime() time.Time { return l.CreatedAt }

// Repo is the logo table; PutEvicting lets quota pressure drop inactive logos.
type Repo interface {
	remote.Repo[Logo]
	PutEvicting(ctx context.Context, rec Logo, evictable func(Logo) bool) error
}

// UploadInput is a base64 (or data URL) image plus its metadata.
type UploadInput struct {
	Name     string
	Type     string
	Data     string
	Activate bool
}

type Service struct {
	repo   Repo
	blobs  blob.Store
	maxDim int
	now    func() time.Time
}

type Option func(*Service)

// WithBlobStore keeps image bytes in s and only the object key in the record.
func WithBlobStore(s blob.Store) Option { return func(svc *Service) { svc.blobs = s } }

// WithMaxDimension overrides DefaultMaxDimension.
func WithMaxDimension(px int) Option {
	return func(svc *Service) {
		if px > 0 {
			svc.maxDim = px
		}
	}
}

func NewService(repo Repo, opts ...Option) *Service {
	s := &Service{repo: repo, maxDim: DefaultMaxDimension, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func inactive(l Logo) bool { return !l.Active }

// Upload normalises the image and stores a new logo. When Activate is set
// the other logos of the same type are deactivated.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Logo, error) {
	typ, ok := ParseType(in.Type)
	if !ok {
		return Logo{}, fmt.Errorf("%w: unknown logo type %q", ErrInvalidInput, in.Type)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = string(typ)
	}
	raw, err := decodePayload(in.Data)
	if err != nil {
		return Logo{}, err
	}
	img, w, h, err := normalizeImage(raw, s.maxDim)
	if err != nil {
		return Logo{}, err
	}
	now := s.now().UTC()
	logo := Logo{
		ID:        ids.New(),
		Name:      name,
		Type:      typ,
		MimeType:  "image/png",
		Width:     w,
		Height:    h,
		Active:    in.Activate,
		SizeBytes: len(img),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.blobs != nil {
		logo.ObjectKey = "logos/" + logo.ID + ".png"
		if err := s.blobs.Put(ctx, logo.ObjectKey, logo.MimeType, img); err != nil {
			return Logo{}, err
		}
	} else {
		logo.Data = base64.StdEncoding.EncodeToString(img)
	}
	if err := s.repo.PutEvicting(ctx, logo, inactive); err != nil {
		s.dropBlob(ctx, logo)
		return Logo{}, err
	}
	if logo.Active {
		if err := s.deactivateOthers(ctx, logo); err != nil {
			return logo, err
		}
	}
	obs.Info("logo stored", "logo_id", logo.ID, "type", string(typ), "bytes", logo.SizeBytes)
	return logo, nil
}

func (s *Service) Get(ctx context.Context, id string) (Logo, error) {
	l, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if remote.IsNotFound(err) {
			return Logo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Logo{}, err
	}
	return l, nil
}

// List returns logos, optionally of one type, newest first.
func (s *Service) List(ctx context.Context, typ Type) ([]Logo, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if typ == "" || l.Type == typ {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b Logo) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Active returns the active logo of typ.
func (s *Service) Active(ctx context.Context, typ Type) (Logo, error) {
	list, err := s.List(ctx, typ)
	if err != nil {
		return Logo{}, err
	}
	for _, l := range list {
		if l.Active {
			return l, nil
		}
	}
	return Logo{}, fmt.Errorf("%w: no active %s logo", ErrNotFound, typ)
}

// Activate makes id the only active logo of its type.
func (s *Service) Activate(ctx context.Context, id string) (Logo, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return Logo{}, err
	}
	if !l.Active {
		l.Active = true
		l.UpdatedAt = s.now().UTC()
		if err := s.repo.PutEvicting(ctx, l, inactive); err != nil {
			return Logo{}, err
		}
	}
	if err := s.deactivateOthers(ctx, l); err != nil {
		return Logo{}, err
	}
	return l, nil
}

// Delete removes the logo and its stored object.
func (s *Service) Delete(ctx context.Context, id string) error {
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, l.ID); err != nil {
		if remote.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	s.dropBlob(ctx, l)
	return nil
}

// Image returns the PNG bytes of a logo.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if l.ObjectKey != "" {
		if s.blobs == nil {
			return nil, "", fmt.Errorf("%w: object storage is not configured", ErrNotFound)
		}
		data, err := s.blobs.Get(ctx, l.ObjectKey)
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return data, l.MimeType, err
	}
	data, err := base64.StdEncoding.DecodeString(l.Data)
	if err != nil {
		return nil, "", fmt.Errorf("decode logo %s: %w", l.ID, err)
	}
	return data, l.MimeType, nil
}

func (s *Service) deactivateOthers(ctx context.Context, keep Logo) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range all {
		if l.ID == keep.ID || l.Type != keep.Type || !l.Active {
			continue
		}
		l.Active = false
		l.UpdatedAt = s.now().UTC()
		if err := s.repo.Put(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dropBlob(ctx context.Context, l Logo) {
	if s.blobs == nil || l.ObjectKey == "" {
		return
	}
	if err := s.blobs.Delete(ctx, l.ObjectKey); err != nil {
		obs.Warn("logo object cleanup failed", "key", l.ObjectKey, "error", err)
	}
}
