package condo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/localstore"
	"github.com/upsolucions/up-control-access/internal/remote"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store := localstore.New(localstore.NewMemory())
	return NewService(
		remote.NewMirror[Condominium](nil, localstore.NewCollection[Condominium](store, remote.TableCondominiums)),
		remote.NewMirror[Person](nil, localstore.NewCollection[Person](store, remote.TablePeople)),
	)
}

func TestCreateCondominiumValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCondominium(ctx, Condominium{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCondominium(ctx, Condominium{Name: "Solar", State: "São Paulo"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCondominium(ctx, Condominium{Name: "Solar", CNPJ: "123"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCondominium(ctx, Condominium{Name: "Solar", Blocks: []Block{{Name: "A", Apartments: -1}}})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateCondominium(ctx, Condominium{Name: "Solar", Blocks: []Block{{Name: "A"}, {Name: " a "}}})
	require.ErrorIs(t, err, ErrConflict)

	c, err := svc.CreateCondominium(ctx, Condominium{
		Name: " Solar das Flores ", State: "sp", CNPJ: "12.345.678/0001-90",
		Blocks: []Block{{Name: "A", Apartments: 20}, {Name: "B", Apartments: 16}},
		Active: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Equal(t, "Solar das Flores", c.Name)
	require.Equal(t, "SP", c.State)
	require.Equal(t, 36, c.TotalApartments())
}

func TestBlocks(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c, err := svc.CreateCondominium(ctx, Condominium{Name: "Solar", Blocks: []Block{{Name: "A", Apartments: 10}}})
	require.NoError(t, err)

	_, err = svc.AddBlock(ctx, c.ID, Block{Name: "a", Apartments: 4})
	require.ErrorIs(t, err, ErrConflict)
	c, err = svc.AddBlock(ctx, c.ID, Block{Name: "B", Apartments: 4})
	require.NoError(t, err)
	require.Equal(t, 14, c.TotalApartments())

	c, err = svc.RemoveBlock(ctx, c.ID, "a")
	require.NoError(t, err)
	require.Equal(t, []Block{{Name: "B", Apartments: 4}}, c.Blocks)
	_, err = svc.RemoveBlock(ctx, c.ID, "Z")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetCondominium(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 1)
}

func TestUpdateAndDeleteCondominium(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	c, err := svc.CreateCondominium(ctx, Condominium{Name: "Solar"})
	require.NoError(t, err)

	up, err := svc.UpdateCondominium(ctx, c.ID, Condominium{Name: "Solar II", City: "Campinas"})
	require.NoError(t, err)
	require.Equal(t, c.ID, up.ID)
	require.True(t, c.CreatedAt.Equal(up.CreatedAt))
	require.Equal(t, "Campinas", up.City)

	require.NoError(t, svc.DeleteCondominium(ctx, c.ID))
	_, err = svc.GetCondominium(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.DeleteCondominium(ctx, c.ID), ErrNotFound)
}

func TestListCondominiums(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	b, err := svc.CreateCondominium(ctx, Condominium{Name: "Bela Vista", City: "Santos", Active: true})
	require.NoError(t, err)
	_, err = svc.CreateCondominium(ctx, Condominium{Name: "Alameda", City: "Campinas"})
	require.NoError(t, err)

	all, err := svc.ListCondominiums(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Alameda", all[0].Name)

	active := true
	got, err := svc.ListCondominiums(ctx, Filter{Active: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.ListCondominiums(ctx, Filter{Query: "campi"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Alameda", got[0].Name)

	got, err = svc.ListCondominiums(ctx, Filter{Scope: b.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, b.ID, got[0].ID)
}

func TestPeople(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.CreatePerson(ctx, Person{Name: "Ana"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePerson(ctx, Person{CondominiumID: "c1", Name: "Ana", Kind: "tenant"})
	require.ErrorIs(t, err, ErrInvalidInput)

	ana, err := svc.CreatePerson(ctx, Person{CondominiumID: "c1", Name: "Ana", Apartment: "101"})
	require.NoError(t, err)
	require.Equal(t, KindResident, ana.Kind)
	_, err = svc.CreatePerson(ctx, Person{CondominiumID: "c1", Name: "Carlos", Kind: "STAFF"})
	require.NoError(t, err)
	_, err = svc.CreatePerson(ctx, Person{CondominiumID: "c2", Name: "Bia"})
	require.NoError(t, err)

	c1, err := svc.ListPeople(ctx, PeopleFilter{CondominiumID: "c1"})
	require.NoError(t, err)
	require.Len(t, c1, 2)
	staff, err := svc.ListPeople(ctx, PeopleFilter{Kind: KindStaff})
	require.NoError(t, err)
	require.Len(t, staff, 1)
	require.Equal(t, "Carlos", staff[0].Name)

	ana.Apartment = "202"
	up, err := svc.UpdatePerson(ctx, ana.ID, ana)
	require.NoError(t, err)
	require.Equal(t, "202", up.Apartment)

	require.NoError(t, svc.DeletePerson(ctx, ana.ID))
	_, err = svc.GetPerson(ctx, ana.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
