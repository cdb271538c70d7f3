/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package fastcgi decodes FastCGI records captured off a unix-domain
// socket's unix_stream_recvmsg/unix_stream_sendmsg path (the PHP-FPM
// worker side of an nginx↔php-fpm exchange): a PARAMS record yields
// the request URI/method, the matching END_REQUEST yields appStatus.
package fastcgi

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

const (
	versionOne    = 1
	typeEndReq    = 3
	typeParams    = 4
	headerLen     = 8
	paramsScanLen = 200
)

// Header is the decoded 8-byte FastCGI record header.
type Header struct {
	Version       uint8
	Type          uint8
	RequestID     uint16
	ContentLength uint16
}

// ParseHeader decodes a FastCGI record header from the first 8 bytes
// of buf. ok is false if buf is too short.
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < headerLen {
		return Header{}, false
	}
	h.Version = buf[0]
	h.Type = buf[1]
	h.RequestID = uint16(buf[2])<<8 | uint16(buf[3])
	h.ContentLength = uint16(buf[4])<<8 | uint16(buf[5])
	return h, true
}

// literalAt reports whether buf[i:] starts with the ASCII literal s.
func literalAt(buf []byte, i int, s string) bool {
	if i+len(s) > len(buf) {
		return false
	}
	for k := 0; k < len(s); k++ {
		if buf[i+k] != s[k] {
			return false
		}
	}
	return true
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// ParseParams scans a FastCGI PARAMS record body for the REQUEST_URI
// and REQUEST_METHOD name/value pairs, mirroring
// kretprobe_unix_stream_recvmsg's linear NV-pair scan: it looks for
// the literal name bytes, then finds the value by scanning forward
// (for URI: the first '/', ending at the next NUL byte; for METHOD:
// the first alphabetic byte, within a 6-byte lookahead), rather than
// parsing NV length prefixes.
func ParseParams(body []byte) (uri, method string, foundURI, foundMethod bool) {
	scan := body
	if len(scan) > paramsScanLen {
		scan = scan[:paramsScanLen]
	}

	limit := len(scan) - 3
	for i := 0; i < limit; i++ {
		if foundURI && foundMethod {
			break
		}

		if !foundURI && literalAt(scan, i, "REQUEST_URI") {
			for j := i + 11; j+1 < len(scan); j++ {
				if scan[j] == '/' {
					end := j + trace.MaxStringLen - 1
					if end > len(scan) {
						end = len(scan)
					}
					for k := j; k < end; k++ {
						if scan[k] == 0 {
							end = k
							break
						}
					}
					uri = trace.ClampTarget(string(scan[j:end]))
					foundURI = true
					break
				}
			}
		}

		if !foundMethod && literalAt(scan, i, "REQUEST_METHOD") {
			stop := i + 20
			if stop > len(scan) {
				stop = len(scan)
			}
			for j := i + 14; j < stop; j++ {
				if isAlpha(scan[j]) {
					end := j + 15
					if end > len(scan) {
						end = len(scan)
					}
					method = string(scan[j:end])
					foundMethod = true
					break
				}
			}
		}
	}

	return uri, method, foundURI, foundMethod
}

// ParseAppStatus reads END_REQUEST's big-endian appStatus field, which
// sits at offset 0 of the record body (i.e. bytes [8:12] of the full
// header+body buffer).
func ParseAppStatus(body []byte) (appStatus int32, ok bool) {
	if len(body) < 4 {
		return 0, false
	}
	v := uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
	return int32(v), true
}

// reqState is the Go rendering of struct fastcgi_req.
type reqState struct {
	startNS uint64
	uri     string
	method  string
}

// Tracker correlates a decoded PARAMS request with its END_REQUEST
// response, keyed by get_key(pid,tid) XOR requestId (mirroring
// fastcgi_reqs).
type Tracker struct {
	reqs *correlate.Table[uint64, reqState]
}

// NewTracker allocates a tracker sized to match fastcgi_reqs' 1024-entry map.
func NewTracker() *Tracker {
	return &Tracker{reqs: correlate.NewTable[uint64, reqState](1024)}
}

func reqKey(pid, tid uint32, requestID uint16) uint64 {
	return uint64(trace.NewThreadKey(pid, tid)) ^ uint64(requestID)
}

// Request mirrors kretprobe_unix_stream_recvmsg: decodes a PARAMS
// record, stores request state for the later END_REQUEST, and emits
// EVENT_FASTCGI_REQUEST. Returns false if hdr isn't a non-empty
// version-1 PARAMS record or neither URI nor method could be decoded.
func (t *Tracker) Request(ring *trace.Ring, pid, tid uint32, nowNS uint64, hdr Header, body []byte) bool {
	if !kernel.BTFAvailable() {
		return false
	}
	if hdr.Version != versionOne || hdr.Type != typeParams || hdr.ContentLength == 0 {
		return false
	}

	uri, method, foundURI, foundMethod := ParseParams(body)
	if !foundURI && !foundMethod {
		return false
	}

	t.reqs.Put(reqKey(pid, tid, hdr.RequestID), reqState{startNS: nowNS, uri: uri, method: method})

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventFastCGIRequest
	e.Target = uri
	e.Details = method
	ring.Emit(e)
	return true
}

// Response mirrors kprobe_unix_stream_sendmsg: decodes an END_REQUEST
// record, correlates it against the stored request state, and emits
// EVENT_FASTCGI_RESPONSE. Returns false if hdr isn't a version-1
// END_REQUEST record or no matching request was tracked.
func (t *Tracker) Response(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64,
	hdr Header, body []byte, frames []uint64) bool {

	if !kernel.BTFAvailable() {
		return false
	}
	if hdr.Version != versionOne || hdr.Type != typeEndReq {
		return false
	}

	req, ok := t.reqs.Take(reqKey(pid, tid, hdr.RequestID))
	if !ok {
		return false
	}

	appStatus, ok := ParseAppStatus(body)
	if !ok {
		return false
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventFastCGIResponse
	if nowNS > req.startNS {
		e.LatencyNS = nowNS - req.startNS
	}
	e.Error = appStatus
	e.Target = req.uri
	e.Details = req.method
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
	return true
}
