package pri

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"forestnav/internal/domain"
)

func TestDecodeCoordinate(t *testing.T) {
	tests := []struct {
		raw, flag, want string
		ok              bool
	}{
		{"4212345", "1", "42.12345", true},
		{"4212345", "2", "-42.12345", true},
		{"4305000", "2", "-43.05000", true},
		{"2512000", "", "25.12000", true},
		{"", "1", "", false},
		{"42.5", "1", "42.5", false},
		{"north", "2", "north", false},
	}
	for _, tt := range tests {
		got, ok := DecodeCoordinate(tt.raw, tt.flag)
		assert.Equal(t, tt.ok, ok, "%q/%q", tt.raw, tt.flag)
		assert.Equal(t, tt.want, got, "%q/%q", tt.raw, tt.flag)
	}
}

func TestDecodeCoordinates_NeedsFlagColumn(t *testing.T) {
	tbl := domain.NewTable(domain.EntityTree, []string{"Latitude", "Longitude", "East/West Flag"})
	tbl.Rows = [][]string{{"4212345", "1234567", "2"}}
	DecodeCoordinates(tbl)

	assert.Equal(t, "4212345", tbl.Rows[0][0], "no North/South Flag column")
	assert.Equal(t, "-12.34567", tbl.Rows[0][1])
}

func TestDecodeCoordinates_LeavesBadCells(t *testing.T) {
	tbl := domain.NewTable(domain.EntityTree, []string{"Latitude", "North/South Flag"})
	tbl.Rows = [][]string{{"", "1"}, {"n/a", "2"}, {"100000", "1"}}
	DecodeCoordinates(tbl)

	assert.Equal(t, "", tbl.Rows[0][0])
	assert.Equal(t, "n/a", tbl.Rows[1][0])
	assert.Equal(t, "1.00000", tbl.Rows[2][0])
}
