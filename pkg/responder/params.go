package responder

import (
	"sort"

	"github.com/rdm-protocol/rdm-go/pkg/param"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// The minimum required parameter set is implied by DEVICE_INFO and is not
// listed by SUPPORTED_PARAMETERS.
var requiredPIDs = map[wire.PID]bool{
	wire.PIDDiscUniqueBranch:     true,
	wire.PIDDiscMute:             true,
	wire.PIDDiscUnMute:           true,
	wire.PIDSupportedParameters:  true,
	wire.PIDDeviceInfo:           true,
	wire.PIDSoftwareVersionLabel: true,
	wire.PIDDMXStartAddress:      true,
	wire.PIDIdentifyDevice:       true,
}

func (r *Responder) getDeviceInfo(subDevice uint16, _ []byte) ([]byte, error) {
	r.mu.Lock()
	addr := r.startAddress
	r.mu.Unlock()

	pd := make([]byte, param.DeviceInfo.Size())
	n, err := param.DeviceInfo.Emplace(pd, []any{
		r.cfg.ModelID, r.cfg.ProductCategory, r.cfg.SoftwareVersionID,
		r.cfg.Footprint, r.cfg.CurrentPersonality, r.cfg.PersonalityCount,
		addr, r.cfg.SubDeviceCount, r.cfg.SensorCount,
	}, len(pd), false)
	if err != nil {
		return nil, err
	}
	return pd[:n], nil
}

func (r *Responder) getSupportedParameters(subDevice uint16, _ []byte) ([]byte, error) {
	r.mu.Lock()
	var pids []wire.PID
	for pid := range r.handlers {
		if !requiredPIDs[pid] {
			pids = append(pids, pid)
		}
	}
	r.mu.Unlock()

	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	pd := make([]byte, 0, 2*len(pids))
	for _, pid := range pids {
		pd = append(pd, uint8(uint16(pid)>>8), uint8(pid))
	}
	return pd, nil
}

func (r *Responder) getSoftwareVersionLabel(subDevice uint16, _ []byte) ([]byte, error) {
	return emplaceLabel(r.cfg.SoftwareVersionLabel)
}

func (r *Responder) getDeviceLabel(subDevice uint16, _ []byte) ([]byte, error) {
	r.mu.Lock()
	label := r.label
	r.mu.Unlock()
	return emplaceLabel(label)
}

func (r *Responder) setDeviceLabel(subDevice uint16, pd []byte) ([]byte, error) {
	vals, err := param.Label.Extract(pd)
	if err != nil {
		return nil, Nack(wire.NackFormatError)
	}
	label := vals[0].(string)

	r.mu.Lock()
	r.label = label
	r.mu.Unlock()
	if err := r.store.Save(uint16(wire.PIDDeviceLabel), label); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Responder) getStartAddress(subDevice uint16, _ []byte) ([]byte, error) {
	r.mu.Lock()
	addr := r.startAddress
	r.mu.Unlock()
	return emplaceWord(addr)
}

func (r *Responder) setStartAddress(subDevice uint16, pd []byte) ([]byte, error) {
	if len(pd) != 2 {
		return nil, Nack(wire.NackFormatError)
	}
	addr := uint16(pd[0])<<8 | uint16(pd[1])
	if addr < 1 || addr > 512 {
		return nil, Nack(wire.NackDataOutOfRange)
	}
	if r.cfg.Footprint == 0 {
		return nil, Nack(wire.NackDataOutOfRange)
	}

	r.mu.Lock()
	r.startAddress = addr
	r.mu.Unlock()
	if err := r.store.Save(uint16(wire.PIDDMXStartAddress), addr); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Responder) getIdentify(subDevice uint16, _ []byte) ([]byte, error) {
	var v uint8
	r.mu.Lock()
	if r.identify {
		v = 1
	}
	r.mu.Unlock()
	return []byte{v}, nil
}

func (r *Responder) setIdentify(subDevice uint16, pd []byte) ([]byte, error) {
	if len(pd) != 1 {
		return nil, Nack(wire.NackFormatError)
	}
	if pd[0] > 1 {
		return nil, Nack(wire.NackDataOutOfRange)
	}
	on := pd[0] == 1

	r.mu.Lock()
	changed := r.identify != on
	r.identify = on
	r.mu.Unlock()
	if changed && r.cfg.OnIdentify != nil {
		r.cfg.OnIdentify(on)
	}
	return nil, nil
}

func emplaceLabel(label string) ([]byte, error) {
	pd := make([]byte, 32)
	n, err := param.Label.Emplace(pd, []any{label}, len(pd), false)
	if err != nil {
		return nil, err
	}
	return pd[:n], nil
}

func emplaceWord(v uint16) ([]byte, error) {
	pd := make([]byte, 2)
	if _, err := param.Word.Emplace(pd, []any{v}, len(pd), false); err != nil {
		return nil, err
	}
	return pd, nil
}
