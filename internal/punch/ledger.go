package punch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"punchclock_backend/internal/models"
)

const (
	chainNamespace = "punchclock.chain.v1"

	// A lost race for the chain head is retried this many times.
	maxAppendAttempts = 5
)

// Geo is an optional client location.
type Geo struct {
	Lat      float64
	Lng      float64
	Accuracy *float64
}

// Entry is everything the ledger needs to record one punch.
type Entry struct {
	DeviceID   string
	Nonce      string
	EmployeeID uint
	Type       models.PunchType
	DeviceTime time.Time
	ReceivedAt time.Time
	Geo        *Geo
	Method     models.EntryMethod
	ClientIP   string
	UserAgent  string
	Payload    string
}

// Ledger appends punches to per-device hash chains.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{DB: db} }

// Append links e after the current head of its device chain. A reused
// (device_id, nonce) yields ErrAlreadyUsed. Losing the head to a concurrent
// append on the same device re-reads the head and tries again.
func (l *Ledger) Append(ctx context.Context, e Entry) (*models.PunchEvent, error) {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		ev, err := l.tryAppend(ctx, e)
		if err == nil {
			return ev, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: append: %w", ErrPersistence, err)
		}

		used, cerr := l.nonceUsed(ctx, e.DeviceID, e.Nonce)
		if cerr != nil {
			return nil, fmt.Errorf("%w: nonce check: %w", ErrPersistence, cerr)
		}
		if used {
			return nil, ErrAlreadyUsed
		}
	}
	return nil, fmt.Errorf("%w: chain head contention on %s", ErrPersistence, e.DeviceID)
}

func (l *Ledger) tryAppend(ctx context.Context, e Entry) (*models.PunchEvent, error) {
	ev := newEvent(e)
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := chainHead(tx, e.DeviceID)
		if err != nil {
			return err
		}
		ev.PrevHash = prev
		ev.Hash = ComputeHash(ev)
		return tx.Create(&ev).Error
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// chainHead returns the hash of the device's last link: the event no other
// event names as its predecessor. An empty string starts a new chain.
func chainHead(tx *gorm.DB, deviceID string) (string, error) {
	var head models.PunchEvent
	err := tx.Model(&models.PunchEvent{}).
		Select("hash").
		Where("device_id = ?", deviceID).
		Where("NOT EXISTS (SELECT 1 FROM punch_events n WHERE n.device_id = punch_events.device_id AND n.prev_hash = punch_events.hash)").
		Order("received_at desc, id desc").
		Take(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return head.Hash, nil
}

func (l *Ledger) nonceUsed(ctx context.Context, deviceID, nonce string) (bool, error) {
	var n int64
	err := l.DB.WithContext(ctx).Model(&models.PunchEvent{}).
		Where("device_id = ? AND nonce = ?", deviceID, nonce).
		Count(&n).Error
	return n > 0, err
}

func newEvent(e Entry) models.PunchEvent {
	ev := models.PunchEvent{
		EmployeeID:  e.EmployeeID,
		DeviceID:    e.DeviceID,
		Type:        e.Type,
		EntryMethod: e.Method,
		DeviceTime:  e.DeviceTime.UTC(),
		ReceivedAt:  e.ReceivedAt.UTC(),
		Nonce:       e.Nonce,
		ClientIP:    e.ClientIP,
		UserAgent:   e.UserAgent,
		Payload:     e.Payload,
	}
	if e.Geo != nil {
		lat, lng := e.Geo.Lat, e.Geo.Lng
		ev.Latitude = &lat
		ev.Longitude = &lng
		if e.Geo.Accuracy != nil {
			acc := *e.Geo.Accuracy
			ev.Accuracy = &acc
		}
	}
	return ev
}

// ComputeHash digests the event's recorded fields and its predecessor's
// hash. Manual entries hash a method marker in place of the nonce and
// leave the payload out, since the code was already single-use.
func ComputeHash(ev models.PunchEvent) string {
	nonce, payload := ev.Nonce, ev.Payload
	if ev.EntryMethod == models.EntryManual {
		nonce, payload = string(models.EntryManual), ""
	}

	fields := []string{
		chainNamespace,
		ev.DeviceID,
		strconv.FormatUint(uint64(ev.EmployeeID), 10),
		string(ev.EntryMethod),
		string(ev.Type),
		strconv.FormatInt(ev.DeviceTime.Unix(), 10),
		nonce,
		formatCoord(ev.Latitude),
		formatCoord(ev.Longitude),
		formatCoord(ev.Accuracy),
		ev.ClientIP,
		ev.UserAgent,
		payload,
		ev.PrevHash,
	}
	// a JSON array keeps field boundaries unambiguous
	b, _ := json.Marshal(fields)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ChainBreak describes the first link that fails verification.
type ChainBreak struct {
	Index    int    `json:"index"`
	EventID  uint   `json:"event_id"`
	Reason   string `json:"reason"`
	Expected string `json:"expected"`
	Stored   string `json:"stored"`
}

type ChainReport struct {
	DeviceID string      `json:"device_id"`
	Length   int         `json:"length"`
	Valid    bool        `json:"valid"`
	Break    *ChainBreak `json:"break,omitempty"`
}

// VerifyChain walks the device chain from its first link, recomputing each
// hash from stored fields and comparing it to the stored value. Events not
// reachable from the first link are reported as a break.
func (l *Ledger) VerifyChain(ctx context.Context, deviceID string) (ChainReport, error) {
	var rows []models.PunchEvent
	if err := l.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return ChainReport{}, fmt.Errorf("%w: load chain: %w", ErrPersistence, err)
	}

	report := ChainReport{DeviceID: deviceID, Length: len(rows), Valid: true}
	byPrev := make(map[string]*models.PunchEvent, len(rows))
	for i := range rows {
		if _, dup := byPrev[rows[i].PrevHash]; !dup {
			byPrev[rows[i].PrevHash] = &rows[i]
		}
	}

	prev := ""
	visited := make(map[uint]bool, len(rows))
	for {
		ev, ok := byPrev[prev]
		if !ok || visited[ev.ID] {
			break
		}
		if want := ComputeHash(*ev); want != ev.Hash {
			report.Valid = false
			report.Break = &ChainBreak{Index: len(visited), EventID: ev.ID, Reason: "hash mismatch", Expected: want, Stored: ev.Hash}
			return report, nil
		}
		visited[ev.ID] = true
		prev = ev.Hash
	}

	for _, ev := range rows {
		if !visited[ev.ID] {
			report.Valid = false
			report.Break = &ChainBreak{Index: len(visited), EventID: ev.ID, Reason: "unlinked event", Expected: prev, Stored: ev.PrevHash}
			break
		}
	}
	return report, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
