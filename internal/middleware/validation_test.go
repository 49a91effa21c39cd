package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessageContent(t *testing.T) {
	require.NoError(t, ValidateMessageContent("hello"))
	require.Error(t, ValidateMessageContent(""))
	require.Error(t, ValidateMessageContent(strings.Repeat("a", 100001)))
	require.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("0191e2f3-8a5b-7c3d-9e1f-2a3b4c5d6e7f"))
	assert.Error(t, ValidateID("not-a-uuid"))
	assert.Error(t, ValidateID(""))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Taxes 2025"))
	assert.NoError(t, ValidateTitle(""))
	assert.Error(t, ValidateTitle(strings.Repeat("t", 257)))
}

func TestValidateFolder(t *testing.T) {
	assert.NoError(t, ValidateFolder("work"))
	assert.NoError(t, ValidateFolder(""))
	assert.Error(t, ValidateFolder(strings.Repeat("f", 65)))
}
