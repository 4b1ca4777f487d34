package tracking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/alytica/pkg/config"
	"github.com/dmitrymomot/alytica/pkg/tracking"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, tracking.DefaultConfig("c").Validate())

	assert.ErrorIs(t, tracking.Config{}.Validate(), tracking.ErrMissingClientID)

	cfg := tracking.DefaultConfig("c")
	cfg.SessionTimeout = -time.Second
	cfg.MaxRetries = -1
	err := cfg.Validate()
	assert.ErrorIs(t, err, tracking.ErrInvalidSessionTimeout)
	assert.ErrorIs(t, err, tracking.ErrInvalidMaxRetries)
}

func TestConfig_DefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := tracking.DefaultConfig("c")
	assert.Equal(t, "c", cfg.ClientID)
	assert.Equal(t, tracking.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.WaitForProfile)
}

func TestConfig_FromEnvironment(t *testing.T) {
	t.Setenv("SHOP_ALYTICA_CLIENT_ID", "shop")
	t.Setenv("SHOP_ALYTICA_CLIENT_SECRET", "secret")
	t.Setenv("SHOP_ALYTICA_WAIT_FOR_PROFILE", "true")
	t.Setenv("SHOP_ALYTICA_SESSION_TIMEOUT", "10m")

	cfg, err := config.Parse[tracking.Config]("SHOP_")
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.True(t, cfg.WaitForProfile)
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, tracking.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestStorageKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alytica_abc", tracking.StorageKey("abc"))
}
