package network

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func newRing() *trace.Ring {
	return trace.NewRing(16)
}

func TestFormatIPv4PortMatchesScenarioOne(t *testing.T) {
	got := FormatIPv4Port(0x0a000001, 443) // 10.0.0.1:443
	assert.Equal(t, "010.000.000.001:00443", got)
}

func TestFormatIPv6PlaceholderNotZeroPadded(t *testing.T) {
	assert.Equal(t, "[IPv6]:443", FormatIPv6Placeholder(443))
	assert.Equal(t, "[IPv6]:80", FormatIPv6Placeholder(80))
	assert.Equal(t, "[IPv6]:8", FormatIPv6Placeholder(8))
}

func TestFormatIPv6FullNoBrackets(t *testing.T) {
	var addr [16]byte
	addr[0], addr[1] = 0x20, 0x01
	addr[2], addr[3] = 0x0d, 0xb8
	got := FormatIPv6Full(addr, 443)
	assert.Equal(t, "2001:db8:000:000:000:000:000:000:00443", got)
}

func TestConnectEntryExitIPv4Correlates(t *testing.T) {
	tbl := NewConnectTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	ConnectEntry(tbl, 100, 200, 1_000_000)
	ConnectExitIPv4(tbl, ring, sb, 100, 200, 1_005_000, 0, 0x0a000001, 443, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventConnect, ev.Type)
	assert.Equal(t, uint64(5000), ev.LatencyNS)
	assert.Equal(t, "010.000.000.001:00443", ev.Target)
	assert.Equal(t, 0, tbl.Len())
}

func TestConnectExitWithoutEntryIsDropped(t *testing.T) {
	tbl := NewConnectTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	ConnectExitIPv4(tbl, ring, sb, 1, 2, 100, 0, 1, 1, nil)

	select {
	case <-ring.Events():
		t.Fatal("expected no event for unmatched exit")
	default:
	}
}

func TestSendRecvCorrelationConsumesTarget(t *testing.T) {
	tbl := NewSendRecvTable()
	targets := NewConnTargets()
	ring := newRing()
	sb := trace.NewSideband(64)

	key := trace.NewThreadKey(5, 6)
	targets.Put(key, "010.000.000.002:00080")

	SendEntry(tbl, 5, 6, 1000)
	SendExit(tbl, targets, ring, sb, 5, 6, 1100, 42, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventTCPSend, ev.Type)
	assert.Equal(t, uint64(42), ev.Bytes)
	assert.Equal(t, "010.000.000.002:00080", ev.Target)
	assert.Equal(t, 0, targets.Len())
}

func TestUDPTableIsIndependentFromTCP(t *testing.T) {
	tcp := NewSendRecvTable()
	udp := NewUDPTable()

	key := trace.NewThreadKey(9, 9)
	tcp.Put(key, 1)
	udp.Put(key, 2)

	v, ok := tcp.Take(key)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), v)

	v, ok = udp.Take(key)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)
}

func TestNetDevXmitErrorOnlyEmitsOnFailure(t *testing.T) {
	ring := newRing()
	sb := trace.NewSideband(64)

	NetDevXmitError(ring, sb, 1, 100, 0, 64, "eth0", nil)
	select {
	case <-ring.Events():
		t.Fatal("expected no event for rc == 0")
	default:
	}

	NetDevXmitError(ring, sb, 1, 100, -1, 64, "eth0", nil)
	ev := <-ring.Events()
	assert.Equal(t, trace.EventNetDevError, ev.Type)
	assert.Equal(t, "eth0", ev.Target)
}

func TestDNSEntryExitCorrelates(t *testing.T) {
	tbl := NewDNSTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	DNSEntry(tbl, 1, 1, 1000, "example.com")
	DNSExit(tbl, ring, sb, 1, 1, 1200, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventDNS, ev.Type)
	assert.Equal(t, "example.com", ev.Target)
	assert.Equal(t, uint64(200), ev.LatencyNS)
}

func TestHTTPRequestFallsBackToConnTargets(t *testing.T) {
	tbl := NewHTTPTable()
	conn := NewConnTargets()
	ring := newRing()
	sb := trace.NewSideband(64)

	key := trace.NewThreadKey(2, 2)
	conn.Put(key, "010.000.000.003:00080")

	HTTPRequestEntry(tbl, 2, 2, 1000, "")
	HTTPRequestExit(tbl, conn, ring, sb, 2, 2, 1500, 200, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventHTTPReq, ev.Type)
	assert.Equal(t, "010.000.000.003:00080", ev.Target)
}

func TestGRPCSendExitEmitsFollowUpEvent(t *testing.T) {
	tcp := NewSendRecvTable()
	targets := NewConnTargets()
	methods := NewGRPCMethods()
	ring := newRing()
	sb := trace.NewSideband(64)

	sendBuf := make([]byte, 9)
	sendBuf[3] = 0x1
	sendBuf = append(sendBuf, []byte("/Greeter/SayHello")...)
	sendBuf = append(sendBuf, ':')

	GRPCSendEntry(methods, 4, 4, 50051, 50051, sendBuf)
	SendEntry(tcp, 4, 4, 1000)
	SendExitGRPC(tcp, targets, methods, ring, sb, 4, 4, 1100, 32, nil)

	first := <-ring.Events()
	assert.Equal(t, trace.EventTCPSend, first.Type)

	second := <-ring.Events()
	assert.Equal(t, trace.EventGRPCMethod, second.Type)
	assert.Equal(t, "/Greeter/SayHello", second.Target)
}

func TestGRPCSendEntryIgnoresWrongPort(t *testing.T) {
	methods := NewGRPCMethods()
	sendBuf := make([]byte, 9)
	sendBuf[3] = 0x1
	sendBuf = append(sendBuf, []byte("/Greeter/SayHello")...)

	GRPCSendEntry(methods, 4, 4, 8080, 50051, sendBuf)
	assert.Equal(t, 0, methods.Len())
}

func TestHTTPResponseHasNoTarget(t *testing.T) {
	tbl := NewHTTPTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	HTTPResponseEntry(tbl, 3, 3, 1000)
	HTTPResponseExit(tbl, ring, sb, 3, 3, 1050, 512, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventHTTPResp, ev.Type)
	assert.Equal(t, "", ev.Target)
	assert.Equal(t, uint64(512), ev.Bytes)
}
