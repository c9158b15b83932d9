package simbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdm-protocol/rdm-go/pkg/interaction"
	"github.com/rdm-protocol/rdm-go/pkg/responder"
	"github.com/rdm-protocol/rdm-go/pkg/transport"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

var ctrlUID = uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x00000001}

func attachDevice(t *testing.T, bus *Bus, deviceID uint32, opts ...Option) uid.UID {
	t.Helper()
	u := uid.UID{ManufacturerID: 0x05e0, DeviceID: deviceID}
	r, err := responder.New(responder.Config{UID: u, Footprint: 1, StartAddress: 1})
	require.NoError(t, err)
	bus.Attach(r, opts...)
	return u
}

func newOp(t *testing.T, bus *Bus) *interaction.Op {
	t.Helper()
	port, err := interaction.NewPort(interaction.Config{Transport: bus.ControllerPort(), UID: ctrlUID})
	require.NoError(t, err)
	op, err := port.Begin()
	require.NoError(t, err)
	t.Cleanup(op.End)
	return op
}

func TestSingleDeviceTransaction(t *testing.T) {
	bus := New()
	dev := attachDevice(t, bus, 0x1000)
	op := newOp(t, bus)

	info, ack, err := op.GetDeviceInfo(dev, 0)
	require.NoError(t, err)
	require.True(t, ack.OK())
	assert.Equal(t, uint16(1), info.StartAddress)
}

func TestEmptyLineTimesOut(t *testing.T) {
	bus := New()
	attachDevice(t, bus, 0x1000)
	op := newOp(t, bus)

	absent := uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x2000}
	_, ack, err := op.GetDeviceInfo(absent, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, ack.Err(), interaction.ErrNoResponse)
}

func TestProbeCollisionAndIsolation(t *testing.T) {
	bus := New()
	a := attachDevice(t, bus, 0x1000)
	b := attachDevice(t, bus, 0x2000)
	op := newOp(t, bus)

	// Both devices answer the full-range probe; the merged frame decodes
	// as a collision.
	_, status, err := op.Probe(uid.Null, uid.Max)
	require.NoError(t, err)
	assert.Equal(t, interaction.ProbeCollision, status)

	// A range holding only one device decodes cleanly.
	found, status, err := op.Probe(uid.Null, uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x1fff})
	require.NoError(t, err)
	assert.Equal(t, interaction.ProbeSingle, status)
	assert.Equal(t, a, found)

	// Muting it leaves the other device alone in the full range.
	_, ack, err := op.Mute(a)
	require.NoError(t, err)
	require.True(t, ack.OK())

	found, status, err = op.Probe(uid.Null, uid.Max)
	require.NoError(t, err)
	assert.Equal(t, interaction.ProbeSingle, status)
	assert.Equal(t, b, found)
}

func TestSwappedDiscUIDQuirk(t *testing.T) {
	bus := New()
	dev := attachDevice(t, bus, 0x00345678, WithSwappedDiscUID())
	op := newOp(t, bus)

	found, status, err := op.Probe(uid.Null, uid.Max)
	require.NoError(t, err)
	require.Equal(t, interaction.ProbeSingle, status)

	// The probe reports the reversed UID; the real device only answers
	// on the true one.
	assert.Equal(t, dev.Flip(), found)
	_, ack, err := op.Mute(found)
	require.NoError(t, err)
	assert.False(t, ack.OK())

	_, ack, err = op.Mute(found.Flip())
	require.NoError(t, err)
	assert.True(t, ack.OK())
}

func TestLoad(t *testing.T) {
	busYAML := `
devices:
  - uid: "05e0:00001000"
    model_id: 257
    software_version_label: "v2.0"
    label: "spot 1"
    footprint: 6
    start_address: 10
  - uid: "05e0:00002000"
    footprint: 1
    start_address: 200
    swapped_disc_uid: true
`
	bus, err := Load([]byte(busYAML))
	require.NoError(t, err)
	require.Len(t, bus.Responders(), 2)

	op := newOp(t, bus)
	dev := uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x1000}

	label, ack, err := op.GetDeviceLabel(dev, 0)
	require.NoError(t, err)
	require.True(t, ack.OK())
	assert.Equal(t, "spot 1", label)

	addr, ack, err := op.GetDMXStartAddress(dev, 0)
	require.NoError(t, err)
	require.True(t, ack.OK())
	assert.Equal(t, uint16(10), addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("devices: ["))
	assert.Error(t, err)

	_, err = Load([]byte("devices: []"))
	assert.Error(t, err)

	_, err = Load([]byte("devices:\n  - uid: \"not-a-uid\"\n"))
	assert.Error(t, err)
}

func TestClosedPort(t *testing.T) {
	bus := New()
	port := bus.ControllerPort()
	require.NoError(t, port.Close())

	_, err := port.Send([]byte{0x01})
	assert.ErrorIs(t, err, transport.ErrClosed)
	_, err = port.Receive(0)
	assert.ErrorIs(t, err, transport.ErrClosed)
}
