package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtLeastZeroIsAlwaysTrue(t *testing.T) {
	assert.True(t, AtLeast(0, 0, 0))
}

func TestInfoNotNil(t *testing.T) {
	assert.NotNil(t, Info())
}

func TestBTFAvailableConsistentWithThreshold(t *testing.T) {
	assert.Equal(t, AtLeast(4, 18, 0), BTFAvailable())
}
