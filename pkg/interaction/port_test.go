package interaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdm-protocol/rdm-go/pkg/param"
	"github.com/rdm-protocol/rdm-go/pkg/transport"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

var (
	ctrlUID = uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x00000001}
	devUID  = uid.UID{ManufacturerID: 0x05e0, DeviceID: 0x12345678}
)

// scriptTransport feeds pre-arranged receive results and records every
// frame sent.
type scriptTransport struct {
	sent    [][]byte
	replies []reply
}

type reply struct {
	data []byte
	err  error
}

func (s *scriptTransport) Send(data []byte) (int, error) {
	s.sent = append(s.sent, append([]byte(nil), data...))
	return len(data), nil
}

func (s *scriptTransport) WaitSent(time.Duration) bool { return true }

func (s *scriptTransport) Receive(time.Duration) ([]byte, error) {
	if len(s.replies) == 0 {
		return nil, transport.ErrTimeout
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.data, r.err
}

func (s *scriptTransport) Close() error { return nil }

// queueResponse appends an encoded response answering the request the port
// will send with transaction number tn.
func (s *scriptTransport) queueResponse(tn uint8, cc wire.CommandClass, pid wire.PID, rt wire.ResponseType, pd []byte) {
	h := &wire.Header{
		DestUID:      ctrlUID,
		SrcUID:       devUID,
		TN:           tn,
		ResponseType: rt,
		CC:           cc,
		PID:          pid,
	}
	var buf [wire.MaxPacketSize]byte
	n, err := wire.EncodeMessage(buf[:], h, pd)
	if err != nil {
		panic(err)
	}
	s.replies = append(s.replies, reply{data: buf[:n]})
}

func newTestPort(t *testing.T, tr transport.Transport) *Port {
	t.Helper()
	p, err := NewPort(Config{Transport: tr, UID: ctrlUID})
	require.NoError(t, err)
	return p
}

func TestNewPortValidation(t *testing.T) {
	_, err := NewPort(Config{UID: ctrlUID})
	assert.Error(t, err)

	_, err = NewPort(Config{Transport: &scriptTransport{}, UID: uid.Null})
	assert.Error(t, err)

	_, err = NewPort(Config{Transport: &scriptTransport{}, UID: uid.BroadcastAll})
	assert.Error(t, err)
}

func TestBeginExclusive(t *testing.T) {
	p := newTestPort(t, &scriptTransport{})

	op, err := p.Begin()
	require.NoError(t, err)

	_, err = p.Begin()
	assert.ErrorIs(t, err, ErrPortBusy)

	op.End()
	op2, err := p.Begin()
	require.NoError(t, err)
	op2.End()

	// End is idempotent.
	op.End()
	op3, err := p.Begin()
	require.NoError(t, err)
	op3.End()
}

func TestOpAfterEnd(t *testing.T) {
	p := newTestPort(t, &scriptTransport{})
	op, err := p.Begin()
	require.NoError(t, err)
	op.End()

	_, _, err = op.Send(Request{DestUID: devUID, CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
	assert.ErrorIs(t, err, ErrOpEnded)
}

func TestSendAck(t *testing.T) {
	tr := &scriptTransport{}
	tr.queueResponse(0, wire.CCGetCommandResponse, wire.PIDDMXStartAddress,
		wire.ResponseTypeAck, []byte{0x00, 0x64})

	p := newTestPort(t, tr)
	op, err := p.Begin()
	require.NoError(t, err)
	defer op.End()

	ack, pd, err := op.Send(Request{DestUID: devUID, CC: wire.CCGetCommand, PID: wire.PIDDMXStartAddress})
	require.NoError(t, err)
	assert.True(t, ack.OK())
	assert.NoError(t, ack.Err())
	assert.Equal(t, devUID, ack.Src)
	assert.Equal(t, []byte{0x00, 0x64}, pd)

	// The request on the wire carries the controller identity.
	require.Len(t, tr.sent, 1)
	req, _, err := wire.DecodeMessage(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, ctrlUID, req.SrcUID)
	assert.Equal(t, devUID, req.DestUID)
	assert.Equal(t, uint8(1), req.PortID)
}

func TestSendClassifications(t *testing.T) {
	t.Run("nack reason", func(t *testing.T) {
		tr := &scriptTransport{}
		tr.queueResponse(0, wire.CCSetCommandResponse, wire.PIDDMXStartAddress,
			wire.ResponseTypeNackReason, []byte{0x00, 0x06})
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		ack, pd, err := op.Send(Request{DestUID: devUID, CC: wire.CCSetCommand,
			PID: wire.PIDDMXStartAddress, PD: []byte{0xff, 0xff}})
		require.NoError(t, err)
		assert.Equal(t, wire.ResponseTypeNackReason, ack.Type)
		assert.Equal(t, wire.NackDataOutOfRange, ack.NackReason)
		assert.Nil(t, pd)
		assert.ErrorIs(t, ack.Err(), ErrNack)
	})

	t.Run("ack timer", func(t *testing.T) {
		tr := &scriptTransport{}
		tr.queueResponse(0, wire.CCSetCommandResponse, wire.PIDDeviceLabel,
			wire.ResponseTypeAckTimer, []byte{0x00, 0x0a})
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		ack, _, err := op.Send(Request{DestUID: devUID, CC: wire.CCSetCommand, PID: wire.PIDDeviceLabel})
		require.NoError(t, err)
		assert.Equal(t, wire.ResponseTypeAckTimer, ack.Type)
		assert.Equal(t, 100*time.Millisecond, ack.Timer)
		assert.ErrorIs(t, ack.Err(), ErrAckTimer)
	})

	t.Run("no response", func(t *testing.T) {
		p := newTestPort(t, &scriptTransport{})
		op, _ := p.Begin()
		defer op.End()

		ack, _, err := op.Send(Request{DestUID: devUID, CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
		require.NoError(t, err)
		assert.Equal(t, wire.ResponseTypeNone, ack.Type)
		assert.ErrorIs(t, ack.Err(), ErrNoResponse)
	})

	t.Run("garbled response", func(t *testing.T) {
		tr := &scriptTransport{replies: []reply{{data: []byte{0xcc, 0x01, 0xff}}}}
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		ack, _, err := op.Send(Request{DestUID: devUID, CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
		require.NoError(t, err)
		assert.Equal(t, wire.ResponseTypeInvalid, ack.Type)
		assert.ErrorIs(t, ack.Err(), ErrInvalidResponse)
	})

	t.Run("mismatched response", func(t *testing.T) {
		tr := &scriptTransport{}
		// Wrong transaction number.
		tr.queueResponse(9, wire.CCGetCommandResponse, wire.PIDDeviceInfo,
			wire.ResponseTypeAck, nil)
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		ack, _, err := op.Send(Request{DestUID: devUID, CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
		require.NoError(t, err)
		assert.Equal(t, wire.ResponseTypeInvalid, ack.Type)
	})
}

func TestBroadcastExpectsNoResponse(t *testing.T) {
	tr := &scriptTransport{}
	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	ack, _, err := op.Send(Request{DestUID: uid.BroadcastAll, CC: wire.CCSetCommand,
		PID: wire.PIDIdentifyDevice, PD: []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, wire.ResponseTypeNone, ack.Type)
	assert.Len(t, tr.sent, 1)
}

func TestGetAllSubDevicesRejected(t *testing.T) {
	p := newTestPort(t, &scriptTransport{})
	op, _ := p.Begin()
	defer op.End()

	_, _, err := op.Send(Request{DestUID: devUID, SubDevice: wire.SubDeviceAll,
		CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
	assert.Error(t, err)
}

func TestNullDestinationRejected(t *testing.T) {
	tr := &scriptTransport{}
	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	// Rejected before anything touches the line.
	_, _, err := op.Send(Request{CC: wire.CCGetCommand, PID: wire.PIDDeviceInfo})
	assert.Error(t, err)
	assert.Empty(t, tr.sent)
}

func TestTransactionNumberAdvances(t *testing.T) {
	tr := &scriptTransport{}
	p := newTestPort(t, tr)
	op, _ := p.Begin()
	defer op.End()

	for i := 0; i < 3; i++ {
		_, _, err := op.Send(Request{DestUID: uid.BroadcastAll, CC: wire.CCSetCommand,
			PID: wire.PIDIdentifyDevice, PD: []byte{0x00}})
		require.NoError(t, err)
	}
	require.Len(t, tr.sent, 3)
	for i, raw := range tr.sent {
		h, _, err := wire.DecodeMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, uint8(i), h.TN)
	}
}

func TestProbe(t *testing.T) {
	t.Run("single responder", func(t *testing.T) {
		var frame [wire.DiscResponseSize]byte
		_, err := wire.EncodeDiscResponse(frame[:], devUID)
		require.NoError(t, err)

		tr := &scriptTransport{replies: []reply{{data: frame[:]}}}
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		found, status, err := op.Probe(uid.Null, uid.Max)
		require.NoError(t, err)
		assert.Equal(t, ProbeSingle, status)
		assert.Equal(t, devUID, found)

		// The probe carries the branch bounds as parameter data.
		h, pd, err := wire.DecodeMessage(tr.sent[0])
		require.NoError(t, err)
		assert.Equal(t, wire.CCDiscCommand, h.CC)
		assert.Equal(t, wire.PIDDiscUniqueBranch, h.PID)
		vals, err := param.DiscUniqueBranch.Extract(pd)
		require.NoError(t, err)
		assert.Equal(t, uid.Null, vals[0])
		assert.Equal(t, uid.Max, vals[1])
	})

	t.Run("silent branch", func(t *testing.T) {
		p := newTestPort(t, &scriptTransport{})
		op, _ := p.Begin()
		defer op.End()

		_, status, err := op.Probe(uid.Null, uid.Max)
		require.NoError(t, err)
		assert.Equal(t, ProbeSilent, status)
	})

	t.Run("collision", func(t *testing.T) {
		tr := &scriptTransport{replies: []reply{{err: transport.ErrCollision}}}
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		_, status, err := op.Probe(uid.Null, uid.Max)
		require.NoError(t, err)
		assert.Equal(t, ProbeCollision, status)
	})

	t.Run("garbled frame is a collision", func(t *testing.T) {
		var a, b [wire.DiscResponseSize]byte
		_, err := wire.EncodeDiscResponse(a[:], devUID)
		require.NoError(t, err)
		_, err = wire.EncodeDiscResponse(b[:], uid.UID{ManufacturerID: 0x05e0, DeviceID: 2})
		require.NoError(t, err)
		merged := make([]byte, wire.DiscResponseSize)
		for i := range merged {
			merged[i] = a[i] | b[i]
		}

		tr := &scriptTransport{replies: []reply{{data: merged}}}
		p := newTestPort(t, tr)
		op, _ := p.Begin()
		defer op.End()

		_, status, err := op.Probe(uid.Null, uid.Max)
		require.NoError(t, err)
		assert.Equal(t, ProbeCollision, status)
	})
}
