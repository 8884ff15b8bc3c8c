package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKey_String(t *testing.T) {
	doctor := uuid.MustParse("8f1c2b9e-4a7d-4f0e-9b3a-2c5d6e7f8a90")
	key := SlotKey{
		DoctorID: doctor,
		Date:     time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		Slot:     7,
	}

	assert.Equal(t, "lock:slot:8f1c2b9e-4a7d-4f0e-9b3a-2c5d6e7f8a90:2026-10-19:7", key.String())
}

func TestNoopLocker_RunsCriticalSection(t *testing.T) {
	locker := NewNoopLocker()
	boom := errors.New("boom")

	ran := false
	err := locker.WithSlotLock(context.Background(), SlotKey{}, func(context.Context) error {
		ran = true
		return boom
	})

	require.True(t, ran)
	assert.ErrorIs(t, err, boom)
}
