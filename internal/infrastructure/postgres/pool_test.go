package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIPv4_Literales(t *testing.T) {
	ip, err := resolveIPv4(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)

	_, err = resolveIPv4(context.Background(), "::1")
	assert.Error(t, err)
}
