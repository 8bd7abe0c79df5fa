package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ecommerce/pkg/domain-errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "demo@example.com", "demo@example.com", false},
		{"trimmed", "  vip@example.com ", "vip@example.com", false},
		{"plus tag", "a.b+orders@shop.example.cn", "a.b+orders@shop.example.cn", false},
		{"domain lowercased", "Jane.Doe@Example.COM", "Jane.Doe@example.com", false},
		{"blank", "   ", "", true},
		{"missing at", "demo.example.com", "", true},
		{"missing tld", "demo@example", "", true},
		{"one letter tld", "demo@example.c", "", true},
		{"space inside", "de mo@example.com", "", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.IsValidation(err))
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParts(t *testing.T) {
	e := MustParse("jane.doe@Example.com")
	assert.Equal(t, "jane.doe", e.LocalPart())
	assert.Equal(t, "example.com", e.Domain())
	assert.True(t, e.Equal(MustParse("jane.doe@example.COM")))
	assert.False(t, e.Equal(MustParse("Jane.doe@example.com")))
}
