package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdm-protocol/rdm-go/pkg/param"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

func TestMute(t *testing.T) {
	binding := uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x1000}
	var pd [8]byte
	n, err := param.DiscMute.Emplace(pd[:], []any{uint16(ControlSubDevice), binding}, len(pd), false)
	require.NoError(t, err)

	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCDiscCommandResponse, wire.PIDDiscMute, wire.ResponseTypeAck, pd[:n])

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	msg, ack, err := op.Mute(devUID)
	require.NoError(t, err)
	require.True(t, ack.OK())
	require.NotNil(t, msg)
	assert.Equal(t, uint16(ControlSubDevice), msg.ControlField)
	assert.Equal(t, binding, msg.BindingUID)
}

func TestMuteWithoutBindingUID(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCDiscCommandResponse, wire.PIDDiscMute,
		wire.ResponseTypeAck, []byte{0x00, 0x00})

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	msg, ack, err := op.Mute(devUID)
	require.NoError(t, err)
	require.True(t, ack.OK())
	assert.Equal(t, uint16(0), msg.ControlField)
	assert.True(t, msg.BindingUID.IsNull())
}

func TestUnMuteBroadcast(t *testing.T) {
	tr := &scriptTransport{}
	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	msg, ack, err := op.UnMute(uid.BroadcastAll)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, wire.ResponseTypeNone, ack.Type)

	h, _, err := wire.DecodeMessage(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, wire.CCDiscCommand, h.CC)
	assert.Equal(t, wire.PIDDiscUnMute, h.PID)
}

func TestGetDeviceInfo(t *testing.T) {
	info := DeviceInfo{
		ModelID:            0x0203,
		ProductCategory:    0x0509,
		SoftwareVersionID:  0x01020304,
		Footprint:          6,
		CurrentPersonality: 1,
		PersonalityCount:   3,
		StartAddress:       100,
		SubDeviceCount:     0,
		SensorCount:        2,
	}
	var pd [19]byte
	n, err := param.DeviceInfo.Emplace(pd[:], []any{
		info.ModelID, info.ProductCategory, info.SoftwareVersionID,
		info.Footprint, info.CurrentPersonality, info.PersonalityCount,
		info.StartAddress, info.SubDeviceCount, info.SensorCount,
	}, len(pd), false)
	require.NoError(t, err)

	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCGetCommandResponse, wire.PIDDeviceInfo, wire.ResponseTypeAck, pd[:n])

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	got, ack, err := op.GetDeviceInfo(devUID, wire.SubDeviceRoot)
	require.NoError(t, err)
	require.True(t, ack.OK())
	assert.Equal(t, &info, got)
}

func TestDeviceLabelRoundTrip(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCSetCommandResponse, wire.PIDDeviceLabel, wire.ResponseTypeAck, nil)
	tr.queueResponse(1, wire.CCGetCommandResponse, wire.PIDDeviceLabel, wire.ResponseTypeAck, []byte("dimmer 12"))

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	ack, err := op.SetDeviceLabel(devUID, wire.SubDeviceRoot, "dimmer 12")
	require.NoError(t, err)
	assert.True(t, ack.OK())

	label, ack, err := op.GetDeviceLabel(devUID, wire.SubDeviceRoot)
	require.NoError(t, err)
	assert.True(t, ack.OK())
	assert.Equal(t, "dimmer 12", label)

	// The SET carries the label without a terminator.
	_, pd, err := wire.DecodeMessage(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("dimmer 12"), pd)
}

func TestSetDMXStartAddressRange(t *testing.T) {
	p := newTestPort(t, &scriptTransport{})
	op, _ := p.Begin()
	defer op.End()

	_, err := op.SetDMXStartAddress(devUID, wire.SubDeviceRoot, 0)
	assert.Error(t, err)
	_, err = op.SetDMXStartAddress(devUID, wire.SubDeviceRoot, 513)
	assert.Error(t, err)
}

func TestGetDMXStartAddress(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCGetCommandResponse, wire.PIDDMXStartAddress,
		wire.ResponseTypeAck, []byte{0x01, 0xf4})

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	addr, ack, err := op.GetDMXStartAddress(devUID, wire.SubDeviceRoot)
	require.NoError(t, err)
	assert.True(t, ack.OK())
	assert.Equal(t, uint16(500), addr)
}

func TestSetIdentify(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCSetCommandResponse, wire.PIDIdentifyDevice, wire.ResponseTypeAck, nil)

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	ack, err := op.SetIdentify(devUID, wire.SubDeviceRoot, true)
	require.NoError(t, err)
	assert.True(t, ack.OK())

	_, pd, err := wire.DecodeMessage(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, pd)
}

func TestGetSupportedParameters(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCGetCommandResponse, wire.PIDSupportedParameters,
		wire.ResponseTypeAck, []byte{0x00, 0x82, 0x00, 0xf0, 0x10, 0x00})

	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	pids, ack, err := op.GetSupportedParameters(devUID, wire.SubDeviceRoot)
	require.NoError(t, err)
	assert.True(t, ack.OK())
	assert.Equal(t, []wire.PID{wire.PIDDeviceLabel, wire.PIDDMXStartAddress, wire.PIDIdentifyDevice}, pids)
}
