package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ecommerce/pkg/domain-errors"
)

func TestGeneratedIDs(t *testing.T) {
	t.Run("generated ids are distinct UUIDs", func(t *testing.T) {
		a, b := NewOrderID(), NewOrderID()
		assert.NotEqual(t, a, b)
		assert.True(t, IsGenerated(a.String()))
		assert.True(t, IsGenerated(NewCustomerID().String()))
		assert.True(t, IsGenerated(NewProductID().String()))
	})

	t.Run("nil UUID is not a generated id", func(t *testing.T) {
		assert.False(t, IsGenerated(uuid.Nil.String()))
		assert.False(t, IsGenerated("legacy-42"))
	})
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"generated uuid", "550e8400-e29b-41d4-a716-446655440000", "550e8400-e29b-41d4-a716-446655440000", false},
		{"opaque legacy id", "SKU-000123", "SKU-000123", false},
		{"surrounding whitespace trimmed", "  abc  ", "abc", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"embedded space", "abc def", "", true},
		{"null byte", "abc\x00def", "", true},
		{"zero-width space", "abc\u200Bdef", "", true},
		{"oversized", strings.Repeat("a", MaxIDLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customerID, errC := ParseCustomerID(tt.input)
			productID, errP := ParseProductID(tt.input)
			orderID, errO := ParseOrderID(tt.input)
			if tt.wantErr {
				for _, err := range []error{errC, errP, errO} {
					require.Error(t, err)
					assert.True(t, dErrors.IsValidation(err))
				}
				return
			}
			require.NoError(t, errC)
			require.NoError(t, errP)
			require.NoError(t, errO)
			if tt.want != "" {
				assert.Equal(t, tt.want, customerID.String())
				assert.Equal(t, tt.want, productID.String())
				assert.Equal(t, tt.want, orderID.String())
			}
		})
	}
}

func TestIDEquality(t *testing.T) {
	a, err := ParseProductID("p-1")
	require.NoError(t, err)
	b, err := ParseProductID(" p-1 ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, ProductID("").IsZero())
}
