/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package grpc extracts the HTTP/2 :path pseudo-header (the gRPC
// method) from the first bytes of a tcp_sendmsg buffer, using an
// HPACK shortcut rather than a full decoder: gRPC's :path is always a
// literal string starting with '/'.
package grpc

import "github.com/gma1k/podtrace/pkg/trace"

const (
	inspectLen   = 50
	frameHdrLen  = 9
	headersFrame = 0x1
)

// MethodFromSendBuffer mirrors kprobe_grpc_tcp_sendmsg: given up to
// inspectLen bytes read from the start of a tcp_sendmsg buffer,
// extracts the gRPC method path, or reports false if buf isn't an
// HTTP/2 HEADERS frame carrying one. The HTTP/2 client connection
// preface ("PRI * HTTP/2.0...") is rejected — it is never a method call.
func MethodFromSendBuffer(buf []byte) (method string, ok bool) {
	if len(buf) > inspectLen {
		buf = buf[:inspectLen]
	}
	if len(buf) < frameHdrLen+1 {
		return "", false
	}
	if buf[3] != headersFrame {
		return "", false
	}
	if buf[0] == 'P' && buf[1] == 'R' && buf[2] == 'I' {
		return "", false
	}

	pathStart := -1
	for i := frameHdrLen; i < len(buf); i++ {
		if buf[i] == '/' {
			pathStart = i
			break
		}
	}
	if pathStart < 0 {
		return "", false
	}

	var path []byte
	for i := pathStart; i < len(buf) && len(path) < trace.MaxStringLen-1; i++ {
		c := buf[i]
		if c < 0x20 || c == ':' || c == ' ' {
			break
		}
		path = append(path, c)
	}
	if len(path) == 0 {
		return "", false
	}
	return string(path), true
}
