package models_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactbook/internal/contact/models"
)

func TestNewContact(t *testing.T) {
	t.Run("valid contact keeps every field", func(t *testing.T) {
		c, err := models.NewContact("Jean", "Dupont", "+33 6 12 34 56 78", "Paris, France")
		require.NoError(t, err)
		assert.Equal(t, "Jean", c.FirstName)
		assert.Equal(t, "Dupont", c.LastName)
		assert.Equal(t, "+33 6 12 34 56 78", c.PhoneNumber)
		assert.Equal(t, "Paris, France", c.Address)
		assert.Equal(t, "Jean Dupont", c.FullName())
		assert.Nil(t, c.RecordID)
	})

	t.Run("address is stored verbatim", func(t *testing.T) {
		c, err := models.NewContact("Jean", "Dupont", "", "  12 rue des Lilas #4\n75001 Paris ")
		require.NoError(t, err)
		assert.Equal(t, "  12 rue des Lilas #4\n75001 Paris ", c.Address)
	})

	for _, name := range invalidNames {
		t.Run(fmt.Sprintf("rejects first name %q", name), func(t *testing.T) {
			c, err := models.NewContact(name, "Name", "", "")
			require.Error(t, err)
			assert.Nil(t, c)

			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, models.FieldFirstName, vErr.Field)
			assert.Equal(t, name, vErr.Value)
		})
		t.Run(fmt.Sprintf("rejects last name %q", name), func(t *testing.T) {
			_, err := models.NewContact("Name", name, "", "")
			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, models.FieldLastName, vErr.Field)
		})
	}

	t.Run("rejects invalid phone", func(t *testing.T) {
		c, err := models.NewContact("Jean", "Dupont", "+44 20 7946 0958", "")
		require.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "+44 20 7946 0958")
	})

	t.Run("record id is attached on rehydration", func(t *testing.T) {
		c, err := models.NewContact("Jean", "Dupont", "", "", models.WithRecordID(7))
		require.NoError(t, err)
		require.NotNil(t, c.RecordID)
		assert.Equal(t, models.RecordID(7), *c.RecordID)
	})
}

func TestFullNameFollowsMutation(t *testing.T) {
	c, err := models.NewContact("Jean", "Dupont", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", c.FullName())

	c.FirstName = "Pierre"
	assert.Equal(t, "Pierre Dupont", c.FullName())

	c.LastName = "Dupontel"
	assert.Equal(t, "Pierre Dupontel", c.FullName())
}

func TestContactRepresentations(t *testing.T) {
	c, err := models.NewContact("Jean", "Dupont", "+33 6 12 34 56 78", "Paris, France")
	require.NoError(t, err)

	t.Run("display form has three lines", func(t *testing.T) {
		assert.Equal(t, "Jean Dupont\nParis, France\n+33 6 12 34 56 78", c.String())
	})

	t.Run("empty fields still emit their line", func(t *testing.T) {
		bare, err := models.NewContact("Jean", "Dupont", "", "")
		require.NoError(t, err)
		assert.Equal(t, "Jean Dupont\n\n", bare.String())
	})

	t.Run("debug form rebuilds the constructor call", func(t *testing.T) {
		assert.Equal(t, `Contact("Jean", "Dupont", "+33 6 12 34 56 78", "Paris, France", nil)`, fmt.Sprintf("%#v", c))

		c.SetRecordID(3)
		assert.Equal(t, `Contact("Jean", "Dupont", "+33 6 12 34 56 78", "Paris, France", 3)`, c.GoString())

		c.ClearRecordID()
		assert.False(t, c.HasRecord())
	})
}

func TestContactFromDocument(t *testing.T) {
	t.Run("maps fields explicitly and attaches the id", func(t *testing.T) {
		c, err := models.ContactFromDocument(models.StoredDocument{
			ID: 4,
			Fields: models.Document{
				models.FieldFirstName:   "Anne Marie",
				models.FieldLastName:    "O'Connor",
				models.FieldPhoneNumber: "01.23.45.67.89",
				models.FieldAddress:     "Lyon",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Anne Marie O'Connor", c.FullName())
		assert.Equal(t, "Lyon", c.Address)
		require.NotNil(t, c.RecordID)
		assert.Equal(t, models.RecordID(4), *c.RecordID)
	})

	t.Run("corrupt documents fail validation", func(t *testing.T) {
		_, err := models.ContactFromDocument(models.StoredDocument{
			ID:     9,
			Fields: models.Document{models.FieldFirstName: "R2D2", models.FieldLastName: "Droid"},
		})
		var vErr *models.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, err.Error(), "document 9")
	})

	t.Run("round trips through ToDocument", func(t *testing.T) {
		c, err := models.NewContact("Jean", "Dupont", "0123456789", "Paris")
		require.NoError(t, err)
		back, err := models.ContactFromDocument(models.StoredDocument{ID: 1, Fields: c.ToDocument()})
		require.NoError(t, err)
		assert.Equal(t, c.ToDocument(), back.ToDocument())
	})
}

func TestParseRecordID(t *testing.T) {
	id, err := models.ParseRecordID("12")
	require.NoError(t, err)
	assert.Equal(t, models.RecordID(12), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := models.ParseRecordID(bad)
		assert.Error(t, err, bad)
	}
}
