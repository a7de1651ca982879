package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("09:00")
	assert.NoError(t, err)
	assert.Equal(t, "0 0 9 * * *", spec)

	spec, err = buildDailySpec("23:59")
	assert.NoError(t, err)
	assert.Equal(t, "0 59 23 * * *", spec)

	for _, bad := range []string{"", "9", "09:60", "24:00", "ab:cd", "09:00:00"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}
