package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(949) 997-3988", "9499973988"},
		{"19499973988", "9499973988"},
		{"+1 949.997.3988", "9499973988"},
		{"123", ""},
		{"", ""},
		{"949-997-398", ""},
		{"949997398８", ""},
		{"１２３４５６７８９０", ""},
		{"+1 (949) 997-3988 ８", "9499973988"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizePhone_NonASCIIDigitsNeverCollide(t *testing.T) {
	a := NormalizePhone("１２３４５６７８９０")
	b := NormalizePhone("９２３４５６７８９０")
	assert.Empty(t, a)
	assert.Empty(t, b)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
