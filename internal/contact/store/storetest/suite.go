// Package storetest holds the behavior every DocumentStore implementation
// must share. Implementations embed DocumentStoreSuite in their own tests.
package storetest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/pkg/platform/sentinel"
)

// DocumentStoreSuite exercises a store returned by Store. SetupTest truncates
// it so each test starts empty.
//
// OpenSecond, when set, opens another handle on the same backing data as
// Store. Stores shared between processes set it.
type DocumentStoreSuite struct {
	suite.Suite
	Store      store.DocumentStore
	Ctx        context.Context
	OpenSecond func() (store.DocumentStore, error)
}

func (s *DocumentStoreSuite) SetupTest() {
	if s.Ctx == nil {
		s.Ctx = context.Background()
	}
	s.Require().NotNil(s.Store, "embedding suite must set Store in SetupSuite")
	s.Require().NoError(s.Store.Truncate(s.Ctx))
}

func doc(first, last, phone, address string) models.Document {
	return models.Document{
		models.FieldFirstName:   first,
		models.FieldLastName:    last,
		models.FieldPhoneNumber: phone,
		models.FieldAddress:     address,
	}
}

// TestInsertAssignsIncreasingIDs verifies identifiers start at 1 and grow.
func (s *DocumentStoreSuite) TestInsertAssignsIncreasingIDs() {
	first, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", ""))
	s.Require().NoError(err)
	second, err := s.Store.Insert(s.Ctx, doc("Marie", "Curie", "", ""))
	s.Require().NoError(err)

	s.Equal(models.RecordID(1), first)
	s.Equal(models.RecordID(2), second)
}

// TestGet verifies lookups by identifier.
func (s *DocumentStoreSuite) TestGet() {
	s.Run("returns stored fields", func() {
		id, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "0123456789", "Paris"))
		s.Require().NoError(err)

		got, err := s.Store.Get(s.Ctx, id)
		s.Require().NoError(err)
		s.Equal(id, got.ID)
		s.Equal("0123456789", got.Fields[models.FieldPhoneNumber])
		s.Equal("Paris", got.Fields[models.FieldAddress])
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.Store.Get(s.Ctx, 999)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestUpdate verifies in-place overwrites keep the identifier.
func (s *DocumentStoreSuite) TestUpdate() {
	s.Run("overwrites fields in place", func() {
		id, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "0123456789", "Paris"))
		s.Require().NoError(err)

		s.Require().NoError(s.Store.Update(s.Ctx, id, doc("Jean", "Dupont", "+33 6 12 34 56 78", "Lyon")))

		got, err := s.Store.Get(s.Ctx, id)
		s.Require().NoError(err)
		s.Equal("+33 6 12 34 56 78", got.Fields[models.FieldPhoneNumber])
		s.Equal("Lyon", got.Fields[models.FieldAddress])
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		err := s.Store.Update(s.Ctx, 999, doc("Jean", "Dupont", "", ""))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestRemove verifies deletion by identifier.
func (s *DocumentStoreSuite) TestRemove() {
	id, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", ""))
	s.Require().NoError(err)

	s.Require().NoError(s.Store.Remove(s.Ctx, id))

	_, err = s.Store.Get(s.Ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.Store.Remove(s.Ctx, id), sentinel.ErrNotFound)
}

// TestFind verifies equality queries.
func (s *DocumentStoreSuite) TestFind() {
	_, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", "Paris"))
	s.Require().NoError(err)
	marie, err := s.Store.Insert(s.Ctx, doc("Marie", "Dupont", "", "Lyon"))
	s.Require().NoError(err)

	s.Run("matches every predicate", func() {
		found, err := s.Store.Find(s.Ctx, store.ByName("Marie", "Dupont"))
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(marie, found[0].ID)
	})

	s.Run("single field predicate", func() {
		found, err := s.Store.Find(s.Ctx, store.Where{models.FieldLastName: "Dupont"})
		s.Require().NoError(err)
		s.Len(found, 2)
	})

	s.Run("no match returns empty", func() {
		found, err := s.Store.Find(s.Ctx, store.ByName("Paul", "Martin"))
		s.Require().NoError(err)
		s.Empty(found)
	})
}

// TestAllKeepsInsertionOrder verifies listing order survives updates.
func (s *DocumentStoreSuite) TestAllKeepsInsertionOrder() {
	a, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", ""))
	s.Require().NoError(err)
	b, err := s.Store.Insert(s.Ctx, doc("Marie", "Curie", "", ""))
	s.Require().NoError(err)
	c, err := s.Store.Insert(s.Ctx, doc("Paul", "Martin", "", ""))
	s.Require().NoError(err)
	s.Require().NoError(s.Store.Update(s.Ctx, a, doc("Jean", "Dupont", "0123456789", "")))
	s.Require().NoError(s.Store.Remove(s.Ctx, b))

	all, err := s.Store.All(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(a, all[0].ID)
	s.Equal(c, all[1].ID)
}

// TestTruncateRestartsIDs verifies the store is emptied and ids restart.
func (s *DocumentStoreSuite) TestTruncateRestartsIDs() {
	_, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", ""))
	s.Require().NoError(err)

	s.Require().NoError(s.Store.Truncate(s.Ctx))

	all, err := s.Store.All(s.Ctx)
	s.Require().NoError(err)
	s.Empty(all)

	id, err := s.Store.Insert(s.Ctx, doc("Marie", "Curie", "", ""))
	s.Require().NoError(err)
	s.Equal(models.RecordID(1), id)
}

// TestReturnedDocumentsAreCopies verifies callers cannot mutate stored state.
func (s *DocumentStoreSuite) TestReturnedDocumentsAreCopies() {
	id, err := s.Store.Insert(s.Ctx, doc("Jean", "Dupont", "", "Paris"))
	s.Require().NoError(err)

	got, err := s.Store.Get(s.Ctx, id)
	s.Require().NoError(err)
	got.Fields[models.FieldAddress] = "Marseille"

	again, err := s.Store.Get(s.Ctx, id)
	s.Require().NoError(err)
	s.Equal("Paris", again.Fields[models.FieldAddress])
}

// TestSecondHandleSeesWrites verifies two handles on the same data observe
// each other's writes without reopening.
func (s *DocumentStoreSuite) TestSecondHandleSeesWrites() {
	if s.OpenSecond == nil {
		s.T().Skip("store has no shared backing data")
	}
	other, err := s.OpenSecond()
	s.Require().NoError(err)
	defer func() { s.NoError(other.Close()) }()

	jean, err := other.Insert(s.Ctx, doc("Jean", "Dupont", "0123456789", "Paris"))
	s.Require().NoError(err)

	found, err := s.Store.Find(s.Ctx, store.ByName("Jean", "Dupont"))
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(jean, found[0].ID)

	marie, err := s.Store.Insert(s.Ctx, doc("Marie", "Curie", "", "Lyon"))
	s.Require().NoError(err)
	s.NotEqual(jean, marie)

	s.Require().NoError(s.Store.Update(s.Ctx, jean, doc("Jean", "Dupont", "0612345678", "Paris")))

	all, err := other.All(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(jean, all[0].ID)
	s.Equal("0612345678", all[0].Fields[models.FieldPhoneNumber])
	s.Equal(marie, all[1].ID)

	s.Require().NoError(other.Remove(s.Ctx, marie))
	_, err = s.Store.Get(s.Ctx, marie)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
