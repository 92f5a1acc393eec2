package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalops/liftoff/internal/testutil"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *Watermarks) {
	t.Helper()

	mr := testutil.NewMiniredis(t)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	wm, err := NewWatermarks(log, &Config{
		Enabled: true,
		Address: mr.Addr(),
		TTL:     time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, wm)

	t.Cleanup(func() {
		require.NoError(t, wm.Close())
	})

	return mr, wm
}

func TestWatermarks_RoundTrip(t *testing.T) {
	_, wm := newTestCache(t)
	ctx := context.Background()

	_, ok, err := wm.Get(ctx, "launches")
	require.NoError(t, err)
	assert.False(t, ok)

	value := time.Date(2010, 6, 4, 18, 45, 0, 0, time.UTC)
	require.NoError(t, wm.Set(ctx, "launches", value))

	got, ok, err := wm.Get(ctx, "launches")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestWatermarks_Invalidate(t *testing.T) {
	_, wm := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, wm.Set(ctx, "launches", time.Now()))
	require.NoError(t, wm.Invalidate(ctx, "launches"))

	_, ok, err := wm.Get(ctx, "launches")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatermarks_EntriesExpire(t *testing.T) {
	mr, wm := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, wm.Set(ctx, "launches", time.Now()))

	mr.FastForward(2 * time.Minute)

	_, ok, err := wm.Get(ctx, "launches")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatermarks_CorruptEntryIsAMiss(t *testing.T) {
	mr, wm := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("liftoff:watermark:launches", "not-a-timestamp"))

	_, ok, err := wm.Get(ctx, "launches")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWatermarks_Disabled(t *testing.T) {
	log := logrus.New()

	wm, err := NewWatermarks(log, &Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, wm)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Enabled: true}
	require.ErrorIs(t, cfg.Validate(), ErrAddressRequired)

	cfg.Address = "localhost:6379"
	require.NoError(t, cfg.Validate())

	cfg.SetDefaults()
	assert.Equal(t, "liftoff", cfg.Prefix)
	assert.Equal(t, "liftoff:watermark:launches", cfg.PrefixKey("watermark:launches"))
}
