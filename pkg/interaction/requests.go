package interaction

import (
	"errors"
	"fmt"
	"time"

	rdmlog "github.com/rdm-protocol/rdm-go/pkg/log"
	"github.com/rdm-protocol/rdm-go/pkg/param"
	"github.com/rdm-protocol/rdm-go/pkg/transport"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// ProbeStatus is the outcome of one branch probe.
type ProbeStatus uint8

const (
	// ProbeSilent means no un-muted responder lies in the branch.
	ProbeSilent ProbeStatus = iota
	// ProbeSingle means exactly one responder answered cleanly.
	ProbeSingle
	// ProbeCollision means several responders answered at once.
	ProbeCollision
)

// String returns the probe status name.
func (s ProbeStatus) String() string {
	switch s {
	case ProbeSilent:
		return "SILENT"
	case ProbeSingle:
		return "SINGLE"
	case ProbeCollision:
		return "COLLISION"
	default:
		return "UNKNOWN"
	}
}

// Probe sends a DISC_UNIQUE_BRANCH for the inclusive UID range [lo, hi].
// Every un-muted responder in the range answers at once; a clean decode
// means exactly one did. Garbled line data is reported as ProbeCollision,
// not as an error, because it is the signal the discovery algorithm
// branches on.
func (o *Op) Probe(lo, hi uid.UID) (uid.UID, ProbeStatus, error) {
	var pd [12]byte
	n, err := param.DiscUniqueBranch.Emplace(pd[:], []any{lo, hi}, len(pd), false)
	if err != nil {
		return uid.Null, ProbeSilent, err
	}

	h, err := o.prepare(Request{
		DestUID: uid.BroadcastAll,
		CC:      wire.CCDiscCommand,
		PID:     wire.PIDDiscUniqueBranch,
		PD:      pd[:n],
	})
	if err != nil {
		return uid.Null, ProbeSilent, err
	}
	if err := o.transmit(h, pd[:n]); err != nil {
		return uid.Null, ProbeSilent, err
	}

	raw, err := o.port.tr.Receive(o.port.timeout)
	switch {
	case errors.Is(err, transport.ErrTimeout):
		o.logProbe(lo, hi, uid.Null, false)
		return uid.Null, ProbeSilent, nil
	case errors.Is(err, transport.ErrCollision):
		o.logProbe(lo, hi, uid.Null, true)
		return uid.Null, ProbeCollision, nil
	case err != nil:
		return uid.Null, ProbeSilent, fmt.Errorf("interaction: receive: %w", err)
	}
	o.logFrame(rdmlog.DirectionIn, raw)

	found, err := wire.DecodeDiscResponse(raw)
	if err != nil {
		// Overlapping frames break the mask pattern or checksum.
		o.logProbe(lo, hi, uid.Null, true)
		return uid.Null, ProbeCollision, nil
	}
	o.logProbe(lo, hi, found, false)
	return found, ProbeSingle, nil
}

// Mute sends DISC_MUTE to dest. A muted responder stops answering branch
// probes but still answers everything else. For a broadcast dest the mute
// message is nil.
func (o *Op) Mute(dest uid.UID) (*MuteMessage, *Ack, error) {
	return o.mute(dest, wire.PIDDiscMute)
}

// UnMute sends DISC_UN_MUTE to dest, clearing its mute flag.
func (o *Op) UnMute(dest uid.UID) (*MuteMessage, *Ack, error) {
	return o.mute(dest, wire.PIDDiscUnMute)
}

func (o *Op) mute(dest uid.UID, pid wire.PID) (*MuteMessage, *Ack, error) {
	ack, pd, err := o.Send(Request{DestUID: dest, CC: wire.CCDiscCommand, PID: pid})
	if err != nil || !ack.OK() {
		return nil, ack, err
	}
	vals, err := param.DiscMute.Extract(pd)
	if err != nil {
		ack.Type = wire.ResponseTypeInvalid
		return nil, ack, nil
	}
	msg := &MuteMessage{ControlField: vals[0].(uint16)}
	if len(vals) > 1 {
		msg.BindingUID = vals[1].(uid.UID)
	}
	return msg, ack, nil
}

// GetDeviceInfo reads the DEVICE_INFO block of a sub-device.
func (o *Op) GetDeviceInfo(dest uid.UID, subDevice uint16) (*DeviceInfo, *Ack, error) {
	ack, pd, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo,
	})
	if err != nil || !ack.OK() {
		return nil, ack, err
	}
	vals, err := param.DeviceInfo.Extract(pd)
	if err != nil {
		ack.Type = wire.ResponseTypeInvalid
		return nil, ack, nil
	}
	return &DeviceInfo{
		ModelID:            vals[0].(uint16),
		ProductCategory:    vals[1].(uint16),
		SoftwareVersionID:  vals[2].(uint32),
		Footprint:          vals[3].(uint16),
		CurrentPersonality: vals[4].(uint8),
		PersonalityCount:   vals[5].(uint8),
		StartAddress:       vals[6].(uint16),
		SubDeviceCount:     vals[7].(uint16),
		SensorCount:        vals[8].(uint8),
	}, ack, nil
}

// GetSoftwareVersionLabel reads a responder's software version string.
func (o *Op) GetSoftwareVersionLabel(dest uid.UID, subDevice uint16) (string, *Ack, error) {
	return o.getLabel(dest, subDevice, wire.PIDSoftwareVersionLabel)
}

// GetDeviceLabel reads a responder's user-set label.
func (o *Op) GetDeviceLabel(dest uid.UID, subDevice uint16) (string, *Ack, error) {
	return o.getLabel(dest, subDevice, wire.PIDDeviceLabel)
}

func (o *Op) getLabel(dest uid.UID, subDevice uint16, pid wire.PID) (string, *Ack, error) {
	ack, pd, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCGetCommand, PID: pid,
	})
	if err != nil || !ack.OK() {
		return "", ack, err
	}
	vals, err := param.Label.Extract(pd)
	if err != nil {
		ack.Type = wire.ResponseTypeInvalid
		return "", ack, nil
	}
	return vals[0].(string), ack, nil
}

// SetDeviceLabel writes a responder's user-set label, at most 32 characters.
func (o *Op) SetDeviceLabel(dest uid.UID, subDevice uint16, label string) (*Ack, error) {
	var pd [33]byte
	n, err := param.Label.Emplace(pd[:], []any{label}, len(pd), false)
	if err != nil {
		return nil, err
	}
	ack, _, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCSetCommand, PID: wire.PIDDeviceLabel, PD: pd[:n],
	})
	return ack, err
}

// GetDMXStartAddress reads a responder's DMX start address.
func (o *Op) GetDMXStartAddress(dest uid.UID, subDevice uint16) (uint16, *Ack, error) {
	ack, pd, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCGetCommand, PID: wire.PIDDMXStartAddress,
	})
	if err != nil || !ack.OK() {
		return 0, ack, err
	}
	vals, err := param.Word.Extract(pd)
	if err != nil {
		ack.Type = wire.ResponseTypeInvalid
		return 0, ack, nil
	}
	return vals[0].(uint16), ack, nil
}

// SetDMXStartAddress writes a responder's DMX start address, 1-512.
func (o *Op) SetDMXStartAddress(dest uid.UID, subDevice uint16, addr uint16) (*Ack, error) {
	if addr < 1 || addr > 512 {
		return nil, fmt.Errorf("interaction: start address %d out of range", addr)
	}
	var pd [2]byte
	if _, err := param.Word.Emplace(pd[:], []any{addr}, len(pd), false); err != nil {
		return nil, err
	}
	ack, _, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCSetCommand, PID: wire.PIDDMXStartAddress, PD: pd[:],
	})
	return ack, err
}

// GetIdentify reads a responder's identify state.
func (o *Op) GetIdentify(dest uid.UID, subDevice uint16) (bool, *Ack, error) {
	ack, pd, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCGetCommand, PID: wire.PIDIdentifyDevice,
	})
	if err != nil || !ack.OK() {
		return false, ack, err
	}
	vals, err := param.Byte.Extract(pd)
	if err != nil {
		ack.Type = wire.ResponseTypeInvalid
		return false, ack, nil
	}
	return vals[0].(uint8) != 0, ack, nil
}

// SetIdentify switches a responder's identify indicator on or off.
func (o *Op) SetIdentify(dest uid.UID, subDevice uint16, on bool) (*Ack, error) {
	var v uint8
	if on {
		v = 1
	}
	var pd [1]byte
	if _, err := param.Byte.Emplace(pd[:], []any{v}, len(pd), false); err != nil {
		return nil, err
	}
	ack, _, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCSetCommand, PID: wire.PIDIdentifyDevice, PD: pd[:],
	})
	return ack, err
}

// GetSupportedParameters reads the PIDs a responder implements beyond the
// minimum required set.
func (o *Op) GetSupportedParameters(dest uid.UID, subDevice uint16) ([]wire.PID, *Ack, error) {
	ack, pd, err := o.Send(Request{
		DestUID: dest, SubDevice: subDevice,
		CC: wire.CCGetCommand, PID: wire.PIDSupportedParameters,
	})
	if err != nil || !ack.OK() {
		return nil, ack, err
	}
	if len(pd)%2 != 0 {
		ack.Type = wire.ResponseTypeInvalid
		return nil, ack, nil
	}
	pids := make([]wire.PID, 0, len(pd)/2)
	for i := 0; i+1 < len(pd); i += 2 {
		pids = append(pids, wire.PID(uint16(pd[i])<<8|uint16(pd[i+1])))
	}
	return pids, ack, nil
}

func (o *Op) logProbe(lo, hi, found uid.UID, collision bool) {
	ev := &rdmlog.DiscoveryEvent{
		Phase:     rdmlog.PhaseProbe,
		LowerUID:  lo.String(),
		UpperUID:  hi.String(),
		Collision: collision,
	}
	if !found.IsNull() {
		ev.FoundUID = found.String()
	}
	o.port.logger.Log(rdmlog.Event{
		Timestamp: time.Now(),
		SessionID: o.port.sessionID,
		Direction: rdmlog.DirectionIn,
		Layer:     rdmlog.LayerEngine,
		Category:  rdmlog.CategoryDiscovery,
		LocalRole: rdmlog.RoleController,
		Port:      o.port.name,
		LocalUID:  o.port.uid.String(),
		Discovery: ev,
	})
}
