package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBlacklistAddAndCheck(t *testing.T) {
	rdb, _ := newTestRedis(t)
	svc := NewTokenBlacklistService(rdb)
	ctx := context.Background()

	blacklisted, err := svc.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, svc.AddToken(ctx, "tok-1", time.Hour))

	blacklisted, err = svc.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	blacklisted, err = svc.IsTokenBlacklisted(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestTokenBlacklistEntryExpiresWithToken(t *testing.T) {
	rdb, mr := newTestRedis(t)
	svc := NewTokenBlacklistService(rdb)
	ctx := context.Background()

	require.NoError(t, svc.AddToken(ctx, "tok-1", time.Minute))
	mr.FastForward(2 * time.Minute)

	blacklisted, err := svc.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestTokenBlacklistRemove(t *testing.T) {
	rdb, _ := newTestRedis(t)
	svc := NewTokenBlacklistService(rdb)
	ctx := context.Background()

	require.NoError(t, svc.AddToken(ctx, "tok-1", time.Hour))
	require.NoError(t, svc.RemoveToken(ctx, "tok-1"))

	blacklisted, err := svc.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}
