package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(16)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_MissOnAbsentKey(t *testing.T) {
	m := NewMemory(16)

	_, ok, err := m.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ExpiresPerEntry(t *testing.T) {
	m := NewMemory(16)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	require.NoError(t, m.Set(ctx, "long", []byte("v"), time.Minute))

	time.Sleep(25 * time.Millisecond)

	_, ok, _ := m.Get(ctx, "short")
	assert.False(t, ok, "entry past its TTL must read as a miss")

	_, ok, _ = m.Get(ctx, "long")
	assert.True(t, ok)
}

func TestMemory_OverwriteReplacesValueAndTTL(t *testing.T) {
	m := NewMemory(16)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("old"), 10*time.Millisecond))
	require.NoError(t, m.Set(ctx, "k", []byte("new"), time.Minute))

	time.Sleep(25 * time.Millisecond)

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestMemory_ValueIsCopied(t *testing.T) {
	m := NewMemory(16)
	ctx := context.Background()

	buf := []byte("original")
	require.NoError(t, m.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'X'

	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("original"), got)
}
