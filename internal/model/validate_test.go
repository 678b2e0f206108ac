package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validParams() *CreateUserParams {
	return &CreateUserParams{
		FirstName: "Ann",
		LastName:  "Lee",
		Mobile:    "5551234567",
		Email:     "ann@x.com",
		LoginID:   "annlee2024",
		Password:  "Abc123!@",
	}
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	t.Run("Valid", func(t *testing.T) {
		assert.Nil(validParams().Validate())
	})

	tests := []struct {
		name   string
		mutate func(p *CreateUserParams)
		field  string
	}{
		{"Short mobile", func(p *CreateUserParams) { p.Mobile = "555123" }, "mobile"},
		{"Alpha mobile", func(p *CreateUserParams) { p.Mobile = "555123456a" }, "mobile"},
		{"Bad email", func(p *CreateUserParams) { p.Email = "ann.x.com" }, "email"},
		{"Short login id", func(p *CreateUserParams) { p.LoginID = "ann" }, "loginId"},
		{"Long login id", func(p *CreateUserParams) { p.LoginID = "annleeannleeannleeann" }, "loginId"},
		{"Weak password", func(p *CreateUserParams) { p.Password = "abc123" }, "password"},
		{"Missing first name", func(p *CreateUserParams) { p.FirstName = "" }, "firstName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(params)
			err := params.Validate()

			var verr *ValidationError
			if assert.True(errors.As(err, &verr)) {
				assert.Len(verr.Fields, 1)
				assert.Equal(tt.field, verr.Fields[0].Field)
			}
		})
	}

	t.Run("Reports every field", func(t *testing.T) {
		params := validParams()
		params.Mobile = "1"
		params.Email = "nope"
		err := params.Validate()

		var verr *ValidationError
		assert.True(errors.As(err, &verr))
		assert.Len(verr.Fields, 2)
		assert.Contains(err.Error(), "Mobile number must be 10 digits")
		assert.Contains(err.Error(), "Invalid email format")
	})
}

func TestValidPassword(t *testing.T) {
	assert := assert.New(t)

	assert.True(ValidPassword("Abc12!"))
	assert.True(ValidPassword("aB c12"))
	assert.False(ValidPassword("Ab!"))
	assert.False(ValidPassword("ABC123!"))
	assert.False(ValidPassword("abc123!"))
	assert.False(ValidPassword("Abc_123"))
}

func TestOfflineTag(t *testing.T) {
	assert := assert.New(t)

	now := time.UnixMilli(1700000000000)
	a := OfflineTag(now)
	b := OfflineTag(now)

	assert.True(IsOfflineTag(a))
	assert.NotEqual(a, b)
	assert.False(IsOfflineTag(ConnectionTagPending))
	assert.False(PresenceEntry{SocketID: a}.IsOnline())
	assert.False(PresenceEntry{SocketID: ConnectionTagPending}.IsOnline())
	assert.True(PresenceEntry{SocketID: "conn-1"}.IsOnline())
}
