//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"contactbook/internal/contact/models"
	"contactbook/internal/contact/store"
	"contactbook/internal/contact/store/postgres"
	"contactbook/internal/contact/store/storetest"
	"contactbook/pkg/platform/sentinel"
	"contactbook/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storetest.DocumentStoreSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Store = postgres.New(s.postgres.DB)
}

func contactDoc(first, last string) models.Document {
	return models.Document{
		models.FieldFirstName:   first,
		models.FieldLastName:    last,
		models.FieldPhoneNumber: "",
		models.FieldAddress:     "",
	}
}

// TestDuplicateNameIsConflict verifies the unique index guards the upsert key.
func (s *PostgresStoreSuite) TestDuplicateNameIsConflict() {
	_, err := s.Store.Insert(s.Ctx, contactDoc("Jean", "Dupont"))
	s.Require().NoError(err)

	_, err = s.Store.Insert(s.Ctx, contactDoc("Jean", "Dupont"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentInsertsSameName verifies exactly one concurrent insert wins.
func (s *PostgresStoreSuite) TestConcurrentInsertsSameName() {
	const goroutines = 20
	ctx := context.Background()

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Store.Insert(ctx, contactDoc("Marie", "Curie"))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())

	found, err := s.Store.Find(ctx, store.ByName("Marie", "Curie"))
	s.Require().NoError(err)
	s.Len(found, 1)
}

// TestUnknownFieldRejected verifies the store only accepts table columns.
func (s *PostgresStoreSuite) TestUnknownFieldRejected() {
	_, err := s.Store.Find(s.Ctx, store.Where{"email": "jean@example.com"})
	s.Error(err)
}
