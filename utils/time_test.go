package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCNow(t *testing.T) {
	now := UTCNow()

	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now().UTC(), now, time.Second)
}

func TestLimaNow(t *testing.T) {
	now, err := LimaNow()
	require.NoError(t, err)

	assert.Equal(t, "America/Lima", now.Location().String())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}
