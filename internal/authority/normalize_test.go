package authority

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bristol, City of", "bristol"},
		{"Kingston upon Hull, City of", "kingston upon hull"},
		{"Herefordshire, County of", "herefordshire"},
		{"City of London", "london"},
		{"Telford and Wrekin UA", "telford and wrekin"},
		{"Bournemouth, Christchurch & Poole", "bournemouth christchurch and poole"},
		{"St. Helens", "st helens"},
		{"  Leeds  ", "leeds"},
		{"DURHAM", "durham"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeName_JoinEquivalence(t *testing.T) {
	// Pairs that must collide: the same authority spelled differently
	// across the census workbook and the boundary product.
	pairs := [][2]string{
		{"Bristol, City of", "City of Bristol"},
		{"Durham UA", "Durham"},
		{"Stockton-on-Tees", "stockton-on-tees"},
	}
	for _, p := range pairs {
		assert.Equal(t, NormalizeName(p[0]), NormalizeName(p[1]),
			"%q and %q should normalize identically", p[0], p[1])
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Kingston Upon Hull", DisplayName("kingston upon hull"))
}
