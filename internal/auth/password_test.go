package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name  string
		plain string
	}{
		{name: "regular", plain: "Secret123"},
		{name: "empty", plain: ""},
		{name: "unicode", plain: "pässwörd-密码"},
		{name: "long", plain: strings.Repeat("a", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.plain)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plain, hash)
			assert.True(t, h.Compare(hash, tt.plain))
			assert.False(t, h.Compare(hash, tt.plain+"x"))
		})
	}
}

func TestPasswordHasherLongInputsDoNotCollide(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	prefix := strings.Repeat("p", 72)

	hash, err := h.Hash(prefix + "first")
	require.NoError(t, err)
	assert.False(t, h.Compare(hash, prefix+"second"))
}

func TestPasswordHasherSalts(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	a, err := h.Hash("Secret123")
	require.NoError(t, err)
	b, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasherCompareEmptyHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, h.Compare("", ""))
	assert.False(t, h.Compare("not-a-bcrypt-hash", "x"))
}

func TestPasswordHasherCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}

func TestPasswordHasherBurn(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	h.Burn("anything")
	require.NotEmpty(t, h.dummy)
	cost, err := bcrypt.Cost(h.dummy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
