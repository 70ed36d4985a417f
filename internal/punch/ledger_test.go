package punch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchclock_backend/internal/models"
)

func entry(deviceID, nonce string, at time.Time) Entry {
	return Entry{
		DeviceID:   deviceID,
		Nonce:      nonce,
		EmployeeID: 1,
		Type:       models.PunchIn,
		DeviceTime: at,
		ReceivedAt: at,
		Method:     models.EntryScanned,
		ClientIP:   "10.0.0.1",
		UserAgent:  "test-agent",
		Payload:    `{"nonce":"` + nonce + `"}`,
	}
}

func TestAppendLinksChain(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newTestDB(t))
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var events []*models.PunchEvent
	for i := 0; i < 4; i++ {
		ev, err := l.Append(ctx, entry("D1", fmt.Sprintf("n%d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		events = append(events, ev)
	}

	assert.Empty(t, events[0].PrevHash)
	assert.Nil(t, events[0].PrevHashOrNil())
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].Hash, events[i].PrevHash)
	}
	for _, ev := range events {
		assert.Equal(t, ComputeHash(*ev), ev.Hash)
		assert.Len(t, ev.Hash, 64)
	}

	other, err := l.Append(ctx, entry("D2", "n0", base))
	require.NoError(t, err)
	assert.Empty(t, other.PrevHash, "chains are per device")

	report, err := l.VerifyChain(ctx, "D1")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 4, report.Length)
}

func TestAppendRejectsReusedNonce(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newTestDB(t))
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := l.Append(ctx, entry("D1", "abc123", at))
	require.NoError(t, err)

	_, err = l.Append(ctx, entry("D1", "abc123", at.Add(time.Second)))
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	_, err = l.Append(ctx, entry("D2", "abc123", at))
	assert.NoError(t, err, "nonce uniqueness is scoped to the device")
}

func TestConcurrentReplayYieldsOneSuccess(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newTestDB(t))
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Append(ctx, entry("D1", "same", at))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, used := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrAlreadyUsed):
			used++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, used)
}

func TestConcurrentAppendsKeepChainLinear(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newTestDB(t))
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Append(ctx, entry("D1", fmt.Sprintf("c%d", i), at))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	report, err := l.VerifyChain(ctx, "D1")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 6, report.Length)
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	l := NewLedger(db)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var events []*models.PunchEvent
	for i := 0; i < 3; i++ {
		ev, err := l.Append(ctx, entry("D1", fmt.Sprintf("n%d", i), base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		events = append(events, ev)
	}

	require.NoError(t, db.Model(&models.PunchEvent{}).Where("id = ?", events[1].ID).Update("employee_id", 99).Error)

	report, err := l.VerifyChain(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotNil(t, report.Break)
	assert.Equal(t, 1, report.Break.Index)
	assert.Equal(t, events[1].ID, report.Break.EventID)
	assert.Equal(t, "hash mismatch", report.Break.Reason)
	assert.Equal(t, events[1].Hash, report.Break.Stored)

	// later links keep their stored hashes; only recomputation exposes the edit
	var third models.PunchEvent
	require.NoError(t, db.First(&third, events[2].ID).Error)
	assert.Equal(t, events[2].Hash, third.Hash)
	assert.Equal(t, events[1].Hash, third.PrevHash)
	assert.Equal(t, third.Hash, ComputeHash(third))
}

func TestVerifyChainDetectsRemovedLink(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	l := NewLedger(db)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var events []*models.PunchEvent
	for i := 0; i < 3; i++ {
		ev, err := l.Append(ctx, entry("D1", fmt.Sprintf("n%d", i), base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.NoError(t, db.Delete(&models.PunchEvent{}, events[1].ID).Error)

	report, err := l.VerifyChain(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotNil(t, report.Break)
	assert.Equal(t, "unlinked event", report.Break.Reason)
	assert.Equal(t, events[2].ID, report.Break.EventID)
}

func TestComputeHashCoversFields(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	lat, lng := -6.2, 106.8
	base := models.PunchEvent{
		EmployeeID:  1,
		DeviceID:    "D1",
		Type:        models.PunchIn,
		EntryMethod: models.EntryScanned,
		DeviceTime:  at,
		Nonce:       "n",
		Latitude:    &lat,
		Longitude:   &lng,
		ClientIP:    "10.0.0.1",
		UserAgent:   "ua",
		Payload:     "{}",
	}
	h := ComputeHash(base)

	mutations := map[string]func(e *models.PunchEvent){
		"employee": func(e *models.PunchEvent) { e.EmployeeID = 2 },
		"type":     func(e *models.PunchEvent) { e.Type = models.PunchOut },
		"time":     func(e *models.PunchEvent) { e.DeviceTime = at.Add(time.Second) },
		"nonce":    func(e *models.PunchEvent) { e.Nonce = "m" },
		"geo":      func(e *models.PunchEvent) { e.Latitude = nil },
		"ip":       func(e *models.PunchEvent) { e.ClientIP = "10.0.0.2" },
		"payload":  func(e *models.PunchEvent) { e.Payload = "[]" },
		"prev":     func(e *models.PunchEvent) { e.PrevHash = "ab" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			e := base
			mutate(&e)
			assert.NotEqual(t, h, ComputeHash(e))
		})
	}

	// received time is not part of the digest
	e := base
	e.ReceivedAt = at.Add(time.Hour)
	assert.Equal(t, h, ComputeHash(e))
}

func TestComputeHashManualUsesMarker(t *testing.T) {
	ev := models.PunchEvent{DeviceID: "V1", EntryMethod: models.EntryManual, Type: models.PunchIn, Nonce: "n1", Payload: "p1"}
	other := ev
	other.Nonce, other.Payload = "n2", "p2"
	assert.Equal(t, ComputeHash(ev), ComputeHash(other))
}
