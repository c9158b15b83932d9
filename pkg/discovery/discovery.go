// Package discovery finds every responder on a bus by binary-searching the
// 48-bit UID space with DISC_UNIQUE_BRANCH probes, muting devices as they
// are confirmed so the remaining population shrinks to silence.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/interaction"
	rdmlog "github.com/rdm-protocol/rdm-go/pkg/log"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// ErrTooManyDevices is returned when MaxDevices confirmed devices have been
// found and the bus still is not silent.
var ErrTooManyDevices = errors.New("discovery: device limit reached")

const (
	// DefaultMuteAttempts is how many times a device is asked to mute
	// before the engine gives up on it.
	DefaultMuteAttempts = 3

	// DefaultProbeAttempts is how many silent probes it takes to declare
	// a branch empty. A single dropped response must not prune a branch
	// that still holds devices.
	DefaultProbeAttempts = 3
)

// Device is one confirmed responder.
type Device struct {
	// UID answers unicast requests.
	UID uid.UID

	// ControlField holds the responder's mute flag bits.
	ControlField uint16

	// BindingUID is the primary port UID on multi-port devices, or the
	// null UID.
	BindingUID uid.UID
}

// Config configures a discovery run.
type Config struct {
	// Port is the bus port to search. Required.
	Port *interaction.Port

	// MaxDevices caps the result. 0 means no cap.
	MaxDevices int

	// MuteAttempts is the per-device mute retry budget. Defaults to
	// DefaultMuteAttempts.
	MuteAttempts int

	// ProbeAttempts is the silent-probe retry budget per branch.
	// Defaults to DefaultProbeAttempts.
	ProbeAttempts int

	// DisableQuickFind forces a pure binary search. The quick-find path
	// trusts clean probe decodes and greedily mutes; disabling it only
	// mutes at fully narrowed branches, which is slower but immune to
	// coincidentally well-formed collision frames.
	DisableQuickFind bool

	// OnDevice is called for each confirmed device, before the run
	// finishes. Optional.
	OnDevice func(Device)

	// SessionID and ProtocolLogger feed the protocol event capture.
	SessionID      string
	ProtocolLogger rdmlog.Logger
}

// Stats counts the work one discovery run did.
type Stats struct {
	Probes     int
	Collisions int
	Mutes      int
}

// Discover runs a full search of the UID space and returns every confirmed
// device. It acquires the port for the whole run; a concurrent holder makes
// it fail with ErrPortBusy. The search runs on the calling goroutine and
// honors ctx between bus transactions.
func Discover(ctx context.Context, cfg Config) ([]Device, Stats, error) {
	if cfg.Port == nil {
		return nil, Stats{}, errors.New("discovery: port is required")
	}
	if cfg.MuteAttempts <= 0 {
		cfg.MuteAttempts = DefaultMuteAttempts
	}
	if cfg.ProbeAttempts <= 0 {
		cfg.ProbeAttempts = DefaultProbeAttempts
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = rdmlog.NoopLogger{}
	}

	op, err := cfg.Port.Begin()
	if err != nil {
		return nil, Stats{}, err
	}
	defer op.End()

	d := &discoverer{cfg: cfg, op: op}

	// Un-mute everything first so devices found by an earlier run take
	// part again.
	d.logPhase(rdmlog.PhaseUnMute, uid.Null, 0)
	if _, _, err := op.UnMute(uid.BroadcastAll); err != nil {
		return nil, d.stats, err
	}

	err = d.search(ctx, uid.Null.Uint64(), uid.Max.Uint64())
	return d.found, d.stats, err
}

type discoverer struct {
	cfg   Config
	op    *interaction.Op
	found []Device
	stats Stats
}

// search resolves every un-muted device in the inclusive range [lo, hi].
// Bounds travel as packed 48-bit values so midpoint math cannot overflow.
func (d *discoverer) search(ctx context.Context, lo, hi uint64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lo == hi {
			_, err := d.resolve(uid.FromUint64(lo))
			return err
		}

		found, status, err := d.probe(lo, hi)
		if err != nil {
			return err
		}

		switch status {
		case interaction.ProbeSilent:
			return nil

		case interaction.ProbeSingle:
			if d.cfg.DisableQuickFind {
				// Trust nothing but fully narrowed branches.
				return d.split(ctx, lo, hi)
			}
			ok, err := d.resolve(found)
			if err != nil {
				return err
			}
			if !ok {
				// The frame decoded but nothing answered the mute,
				// so it was probably a disguised collision.
				return d.split(ctx, lo, hi)
			}
			// Greedily re-probe the same branch for the next device.
			continue

		case interaction.ProbeCollision:
			d.stats.Collisions++
			return d.split(ctx, lo, hi)
		}
	}
}

// probe sends DISC_UNIQUE_BRANCH for [lo, hi], retrying silence up to the
// attempt budget before the branch counts as empty.
func (d *discoverer) probe(lo, hi uint64) (uid.UID, interaction.ProbeStatus, error) {
	for attempt := 1; attempt <= d.cfg.ProbeAttempts; attempt++ {
		found, status, err := d.op.Probe(uid.FromUint64(lo), uid.FromUint64(hi))
		if err != nil {
			return uid.Null, status, err
		}
		d.stats.Probes++
		if status != interaction.ProbeSilent {
			return found, status, nil
		}
	}
	return uid.Null, interaction.ProbeSilent, nil
}

func (d *discoverer) split(ctx context.Context, lo, hi uint64) error {
	mid := lo + (hi-lo)/2
	if err := d.search(ctx, lo, mid); err != nil {
		return err
	}
	return d.search(ctx, mid+1, hi)
}

// resolve confirms a candidate by muting it. Candidates that stay silent
// get one more chance with their UID bytes reversed, recovering devices
// with the byte-order firmware defect. Reports whether a device was
// confirmed.
func (d *discoverer) resolve(candidate uid.UID) (bool, error) {
	msg, attempt, err := d.tryMute(candidate)
	if err != nil {
		return false, err
	}
	if msg == nil {
		flipped := candidate.Flip()
		if flipped.Equal(candidate) || flipped.IsBroadcast() {
			return false, nil
		}
		msg, attempt, err = d.tryMute(flipped)
		if err != nil || msg == nil {
			return false, err
		}
		candidate = flipped
	}

	dev := Device{UID: candidate, ControlField: msg.ControlField, BindingUID: msg.BindingUID}
	if !msg.BindingUID.IsNull() {
		// Multi-port devices answer discovery on each port but take
		// requests through the primary port they report.
		dev.UID = msg.BindingUID
	}
	d.found = append(d.found, dev)
	d.logFound(dev.UID, attempt)
	if d.cfg.OnDevice != nil {
		d.cfg.OnDevice(dev)
	}
	if d.cfg.MaxDevices > 0 && len(d.found) >= d.cfg.MaxDevices {
		return true, fmt.Errorf("%w: %d", ErrTooManyDevices, d.cfg.MaxDevices)
	}
	return true, nil
}

// tryMute asks target to mute up to the attempt budget. A nil message with
// a nil error means the target never acked.
func (d *discoverer) tryMute(target uid.UID) (*interaction.MuteMessage, uint8, error) {
	for attempt := 1; attempt <= d.cfg.MuteAttempts; attempt++ {
		d.logPhase(rdmlog.PhaseMute, target, uint8(attempt))
		msg, ack, err := d.op.Mute(target)
		if err != nil {
			return nil, 0, err
		}
		d.stats.Mutes++
		if ack.OK() && msg != nil {
			return msg, uint8(attempt), nil
		}
	}
	return nil, 0, nil
}

func (d *discoverer) logPhase(phase rdmlog.DiscoveryPhase, target uid.UID, attempt uint8) {
	ev := &rdmlog.DiscoveryEvent{Phase: phase, Attempt: attempt}
	if !target.IsNull() {
		ev.FoundUID = target.String()
	}
	d.log(ev)
}

func (d *discoverer) logFound(found uid.UID, attempt uint8) {
	d.log(&rdmlog.DiscoveryEvent{
		Phase:    rdmlog.PhaseFound,
		FoundUID: found.String(),
		Attempt:  attempt,
	})
}

func (d *discoverer) log(ev *rdmlog.DiscoveryEvent) {
	d.cfg.ProtocolLogger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: d.cfg.SessionID,
		Direction: rdmlog.DirectionOut,
		Layer:     rdmlog.LayerEngine,
		Category:  rdmlog.CategoryDiscovery,
		LocalRole: rdmlog.RoleController,
		LocalUID:  d.cfg.Port.UID().String(),
		Discovery: ev,
	})
}
