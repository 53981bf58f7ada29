package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vacancies.db")
	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	seeds := DefaultSeeds([]string{"Vacancy 1", "Vacancy 2", "Vacancy 3", "Vacancy 4"}, "voices")
	require.NoError(t, s.Init(context.Background(), seeds))

	return s
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A second Init with different titles must not duplicate or overwrite.
	again := DefaultSeeds([]string{"Other 1", "Other 2", "Other 3", "Other 4"}, "voices")
	require.NoError(t, s.Init(ctx, again))

	available, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 4)

	for i, v := range available {
		assert.Equal(t, int64(i+1), v.ID)
		assert.Equalf(t, fmt.Sprintf("Vacancy %d", i+1), v.Title, "title of %d must survive reseeding", v.ID)
		assert.Equal(t, VoiceLocal, v.Voice.Kind)
	}
}

func TestReserveFlipsExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.Reserve(ctx, 1)
	require.NoError(t, err)
	assert.True(t, v.Taken)
	assert.Equal(t, "Vacancy 1", v.Title)

	_, err = s.Reserve(ctx, 1)
	require.ErrorIs(t, err, ErrAlreadyTaken)

	available, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	for _, left := range available {
		assert.NotEqual(t, int64(1), left.ID)
	}
}

func TestReserveUnknownIDIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Reserve(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrAlreadyTaken)
}

func TestReserveAtMostOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const callers = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.Reserve(ctx, 2)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrAlreadyTaken):
				losers++
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, losers)
}

func TestResetAllRestoresAvailability(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for id := int64(1); id <= 4; id++ {
		_, err := s.Reserve(ctx, id)
		require.NoError(t, err)
	}

	available, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Empty(t, available)

	require.NoError(t, s.ResetAll(ctx))

	available, err = s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 4)
}

func TestUpdateVoiceRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateVoiceRef(ctx, 2, RemoteVoice("AgACAgIAAxkBAAI")))

	v, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, VoiceRemote, v.Voice.Kind)
	assert.Equal(t, "AgACAgIAAxkBAAI", v.Voice.Value)

	// The new reference survives a reservation.
	v, err = s.Reserve(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, RemoteVoice("AgACAgIAAxkBAAI"), v.Voice)

	// Unknown ids are a silent no-op.
	require.NoError(t, s.UpdateVoiceRef(ctx, 99, LocalVoice("voices/voice99.ogg")))
	_, err = s.Get(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}
