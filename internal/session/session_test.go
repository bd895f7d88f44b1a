package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_SaveLoad(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	s := New()
	s.SetCart(uuid.New())
	s.ApplyPromo("AbC1234")
	s.RememberOrder(7)
	s.AddNotice("hello")
	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists("session:"+s.ID))
	assert.Equal(t, time.Hour, mr.TTL("session:"+s.ID))

	got, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, *s.CartID, *got.CartID)
	assert.Equal(t, "AbC1234", got.AppliedPromoCode)
	assert.True(t, got.OwnsOrder(7))
	assert.Equal(t, []string{"hello"}, got.PopNotices())
}

func TestRedisStore_MissingAndExpired(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Load(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	s := New()
	require.NoError(t, store.Save(ctx, s))
	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	s := New()
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Delete(ctx, s.ID))

	_, err := store.Load(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, time.Minute)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSession_RememberOrderKeepsRecent(t *testing.T) {
	t.Parallel()

	s := New()
	for i := uint(1); i <= maxRememberedOrders+5; i++ {
		s.RememberOrder(i)
	}
	assert.Len(t, s.OrderIDs, maxRememberedOrders)
	assert.False(t, s.OwnsOrder(1))
	assert.True(t, s.OwnsOrder(maxRememberedOrders+5))
}

func TestSession_PopNotices(t *testing.T) {
	t.Parallel()

	s := New()
	assert.Equal(t, []string{}, s.PopNotices())

	s.AddNotice("a")
	s.AddNotice("b")
	assert.Equal(t, []string{"a", "b"}, s.PopNotices())
	assert.Empty(t, s.Notices)
}

func TestToken_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("session-secret")
	now := time.Now()

	tok, err := SignToken("abc", secret, now, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.ID)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("session-secret")

	tok, err := SignToken("abc", secret, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("other-secret"))
	assert.Error(t, err, "wrong secret")

	_, err = ParseToken(tok+"x", secret)
	assert.Error(t, err, "tampered")

	expired, err := SignToken("abc", secret, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.Error(t, err, "expired")

	noID, err := SignToken("", secret, time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(noID, secret)
	assert.Error(t, err, "missing id")
}
