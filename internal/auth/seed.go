package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/upsolucions/up-control-access/internal/obs"
)

// SeedUser is one entry of the bootstrap users file.
type SeedUser struct {
	Name          string   `yaml:"name"`
	Email         string   `yaml:"email"`
	Password      string   `yaml:"password"`
	Profile       string   `yaml:"profile"`
	CondominiumID string   `yaml:"condominium_id"`
	Permissions   []string `yaml:"permissions"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeed reads the bootstrap users YAML file.
func LoadSeed(path string) ([]SeedUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a users document.
func ParseSeed(raw []byte) ([]SeedUser, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return f.Users, nil
}

// Seed creates users whose email is not yet registered and returns how many were added.
func (d *Directory) Seed(ctx context.Context, users []SeedUser) (int, error) {
	added := 0
	for _, su := range users {
		_, err := d.CreateUser(ctx, NewUserInput{
			Name:          su.Name,
			Email:         su.Email,
			Password:      su.Password,
			Profile:       su.Profile,
			CondominiumID: su.CondominiumID,
			Permissions:   su.Permissions,
		})
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrConflict):
		default:
			return added, fmt.Errorf("seed %s: %w", su.Email, err)
		}
	}
	if added > 0 {
		obs.Info("seed users created", "count", added)
	}
	return added, nil
}
