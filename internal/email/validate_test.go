package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyashahama/project-delivery-backend/internal/email"
)

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	valid := []string{
		"jane@example.com",
		"j.doe+orders@mail.example.co.uk",
		"x@y.z",
	}
	for _, addr := range valid {
		assert.True(t, email.IsValidAddress(addr), addr)
	}

	invalid := []string{
		"",
		"jane.example.com",
		"jane@example",
		"jane@@example.com",
		"jane doe@example.com",
		"@example.com",
		"jane@.",
	}
	for _, addr := range invalid {
		assert.False(t, email.IsValidAddress(addr), addr)
	}
}

func TestValidateAddress_ReturnsValidationError(t *testing.T) {
	t.Parallel()

	err := email.ValidateAddress("recipient", "not-an-address")
	require.Error(t, err)

	var ve *email.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "recipient", ve.Field)
	assert.Equal(t, "not-an-address", ve.Address)

	assert.NoError(t, email.ValidateAddress("recipient", "ok@example.com"))
}
