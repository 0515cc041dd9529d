package specs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCanonicalPath(t *testing.T) {
	assert.True(t, IsCanonicalPath(PathSamplingTemperature))
	assert.False(t, IsCanonicalPath("$.not_canonical"))
}
