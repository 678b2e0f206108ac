package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.liveusers/internal/model"
)

func TestIssuer(t *testing.T) {
	assert := assert.New(t)
	issuer := NewIssuer("s3cret", time.Hour)

	t.Run("Round trip", func(t *testing.T) {
		token, err := issuer.Issue("u1")
		assert.Nil(err)
		assert.NotEmpty(token)

		subject, err := issuer.Verify(token)
		assert.Nil(err)
		assert.Equal(model.UserID("u1"), subject)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token, _ := NewIssuer("other", time.Hour).Issue("u1")
		_, err := issuer.Verify(token)
		assert.True(errors.Is(err, model.ErrorInvalidToken))
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewIssuer("s3cret", time.Minute)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _ := expired.Issue("u1")
		_, err := issuer.Verify(token)
		assert.True(errors.Is(err, model.ErrorInvalidToken))
	})

	t.Run("Disabled", func(t *testing.T) {
		disabled := NewIssuer("", time.Hour)
		assert.False(disabled.Enabled())
		token, err := disabled.Issue("u1")
		assert.Nil(err)
		assert.Empty(token)
		_, err = disabled.Verify("anything")
		assert.True(errors.Is(err, model.ErrorInvalidToken))
	})
}
