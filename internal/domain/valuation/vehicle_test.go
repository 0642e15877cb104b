package valuation

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMake(t *testing.T) {
	tests := map[string]string{
		"audi":          "Audi",
		"AUDI":          "Audi",
		" toyota ":      "Toyota",
		"mercedes-benz": "Mercedes-Benz",
		"land rover":    "Land Rover",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatMake(in), "input %q", in)
	}
}

func TestParseYear(t *testing.T) {
	t.Run("valid year", func(t *testing.T) {
		year, err := ParseYear("list makes", "2022")
		require.NoError(t, err)
		assert.Equal(t, 2022, year)
	})

	t.Run("next model year is allowed", func(t *testing.T) {
		next := time.Now().Year() + 1
		year, err := ParseYear("list makes", strconv.Itoa(next))
		require.NoError(t, err)
		assert.Equal(t, next, year)
	})

	for _, raw := range []string{"", "abc", "1979", strconv.Itoa(time.Now().Year() + 2), "20.5"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseYear("list makes", raw)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestValidateGid(t *testing.T) {
	assert.NoError(t, ValidateGid("op", "425364"))
	assert.NoError(t, ValidateGid("op", "ab_12-X"))

	for _, gid := range []string{"", "  ", "../vehicle", "a b", "a?apiKey=x"} {
		err := ValidateGid("op", gid)
		assert.True(t, errors.Is(err, ErrValidation), "gid %q", gid)
	}
}

func TestVinCandidate_Identity(t *testing.T) {
	c := VinCandidate{Gid: "425364", Year: 2003, Make: "Honda", Model: "Accord", Style: "EX 4dr Sedan"}
	id := c.Identity()

	assert.Equal(t, VehicleIdentity{Year: 2003, Make: "Honda", Model: "Accord", Trim: "EX 4dr Sedan", Gid: "425364"}, id)
	assert.True(t, id.HasGid())
	assert.False(t, VehicleIdentity{Year: 2022, Make: "Audi", Model: "A4"}.HasGid())
}

func TestRequireText(t *testing.T) {
	v, err := RequireText("op", "Make", "  Audi ")
	require.NoError(t, err)
	assert.Equal(t, "Audi", v)

	_, err = RequireText("op", "Make", " ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Make is required")
}
