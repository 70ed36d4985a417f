package punch

import (
	"context"
	"time"

	"gorm.io/gorm"

	"punchclock_backend/internal/models"
)

// Source is where a punch payload comes from. Both variants converge on the
// same verify, resolve and append path.
type Source interface {
	payload(ctx context.Context, s *Service, now time.Time) (string, models.EntryMethod, error)
}

// ScannedPayload is a payload read from a device's QR code or pasted text.
type ScannedPayload struct {
	Raw string
}

func (p ScannedPayload) payload(context.Context, *Service, time.Time) (string, models.EntryMethod, error) {
	return p.Raw, models.EntryScanned, nil
}

// ManualCode is an 8-digit code issued by a manager.
type ManualCode struct {
	Code string
}

func (m ManualCode) payload(ctx context.Context, s *Service, now time.Time) (string, models.EntryMethod, error) {
	raw, err := s.Broker.Redeem(ctx, m.Code, now)
	return raw, models.EntryManual, err
}

type PunchRequest struct {
	EmployeeID uint
	Source     Source
	Geo        *Geo
	ClientIP   string
	UserAgent  string
}

type PunchResult struct {
	EventID     uint               `json:"event_id"`
	Type        models.PunchType   `json:"type"`
	RecordedAt  time.Time          `json:"recorded_at"`
	DeviceTime  time.Time          `json:"device_time"`
	DeviceID    string             `json:"device_id"`
	EntryMethod models.EntryMethod `json:"entry_method"`
	Hash        string             `json:"hash"`
}

type Service struct {
	Verifier *Verifier
	Resolver *Resolver
	Ledger   *Ledger
	Broker   *Broker
	Now      func() time.Time
}

// Registry is what the service needs from the device registry.
type Registry interface {
	DeviceLookup
	VirtualDevices
}

func NewService(db *gorm.DB, devices Registry, skew, codeTTL time.Duration) *Service {
	return &Service{
		Verifier: NewVerifier(devices, skew),
		Resolver: NewResolver(db),
		Ledger:   NewLedger(db),
		Broker:   NewBroker(db, devices, codeTTL),
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Punch records one clock event for the employee.
func (s *Service) Punch(ctx context.Context, req PunchRequest) (PunchResult, error) {
	now := s.now()

	raw, method, err := req.Source.payload(ctx, s, now)
	if err != nil {
		return PunchResult{}, err
	}
	p, err := DecodePayload(raw)
	if err != nil {
		return PunchResult{}, err
	}
	v, err := s.Verifier.Verify(ctx, p, now)
	if err != nil {
		return PunchResult{}, err
	}
	typ, err := s.Resolver.Resolve(ctx, req.EmployeeID, now)
	if err != nil {
		return PunchResult{}, err
	}

	ev, err := s.Ledger.Append(ctx, Entry{
		DeviceID:   v.DeviceID,
		Nonce:      v.Nonce,
		EmployeeID: req.EmployeeID,
		Type:       typ,
		DeviceTime: v.DeviceTime,
		ReceivedAt: now,
		Geo:        req.Geo,
		Method:     method,
		ClientIP:   req.ClientIP,
		UserAgent:  req.UserAgent,
		Payload:    v.Canonical,
	})
	if err != nil {
		return PunchResult{}, err
	}

	return PunchResult{
		EventID:     ev.ID,
		Type:        ev.Type,
		RecordedAt:  ev.ReceivedAt,
		DeviceTime:  ev.DeviceTime,
		DeviceID:    ev.DeviceID,
		EntryMethod: ev.EntryMethod,
		Hash:        ev.Hash,
	}, nil
}

// IssueManualCode issues a code on the manager's virtual device.
func (s *Service) IssueManualCode(ctx context.Context, managerID uint) (IssuedCode, error) {
	return s.Broker.Issue(ctx, managerID, s.now())
}

// Today returns the employee's punches for the current UTC day.
func (s *Service) Today(ctx context.Context, employeeID uint) ([]models.PunchEvent, error) {
	return s.Resolver.Today(ctx, employeeID, s.now())
}

// SweepManualCodes drops expired manual codes.
func (s *Service) SweepManualCodes(ctx context.Context) (int64, error) {
	return s.Broker.Sweep(ctx, s.now())
}
