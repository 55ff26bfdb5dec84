package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUID(t *testing.T) {
	a, err := NewUUID()
	require.NoError(t, err)
	b := MustNewUUID()

	assert.NoError(t, ValidateUUID(a))
	assert.NoError(t, ValidateUUID(b))
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version 7")
}

func TestValidateUUID(t *testing.T) {
	assert.Error(t, ValidateUUID(""))
	assert.Error(t, ValidateUUID("42"))
	assert.NoError(t, ValidateUUID("0192f3a4-5b6c-7d8e-9f01-23456789abcd"))
}
