/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package errs provides a coded error type for the space-captain core
// packages, grouped by component the way a multi-package library groups
// error codes by module.
package errs

// Code is a numeric error code. Codes are numbered consecutively from 101
// and listed in per-component groups.
type Code uint16

const (
	CodeUnknown Code = 0

	// queue (C1)
	CodeQueueInvalidCapacity Code = 100 + iota
	CodeQueueCapacityOverflow
	CodeQueueNilArgument
	CodeQueueTimeout
	CodeQueueFull
	CodeQueueEmpty
	CodeQueueClosed

	// wire codec (C6)
	CodeCodecShortHeader
	CodeCodecPayloadTooLarge
	CodeCodecPayloadEmpty
	CodeCodecShortPayload

	// connection buffer pool (C3)
	CodePoolExhausted

	// framing (C4a)
	CodeFramingInvalidLength
	CodeFramingPeerClosed

	// session layer (C2)
	CodeSessionInit
	CodeSessionHandshake
	CodeSessionHandshakeTimeout
	CodeSessionCertVerify
	CodeSessionWouldBlock
	CodeSessionPeerClosed
	CodeSessionRead
	CodeSessionWrite
	CodeSessionCookie

	// worker pool (C5)
	CodeWorkerDispatchUnknown
	CodeWorkerSendFailed
	CodeWorkerNoResponse

	// certificates
	CodeCertLoad
	CodeCertHash
)

var names = map[Code]string{
	CodeUnknown:                 "unknown error",
	CodeQueueInvalidCapacity:    "queue: invalid capacity",
	CodeQueueCapacityOverflow:   "queue: capacity overflow",
	CodeQueueNilArgument:        "queue: nil argument",
	CodeQueueTimeout:            "queue: operation timed out",
	CodeQueueFull:               "queue: full",
	CodeQueueEmpty:              "queue: empty",
	CodeQueueClosed:             "queue: closed",
	CodeCodecShortHeader:        "codec: short header",
	CodeCodecPayloadTooLarge:    "codec: payload too large",
	CodeCodecPayloadEmpty:       "codec: payload empty for a type that requires one",
	CodeCodecShortPayload:       "codec: short payload",
	CodePoolExhausted:           "pool: exhausted, falling back to dynamic allocation",
	CodeFramingInvalidLength:    "framing: invalid payload length",
	CodeFramingPeerClosed:       "framing: peer closed during read",
	CodeSessionInit:             "session: context initialization failed",
	CodeSessionHandshake:        "session: handshake failed",
	CodeSessionHandshakeTimeout: "session: handshake timed out",
	CodeSessionCertVerify:       "session: certificate verification failed",
	CodeSessionWouldBlock:       "session: would block",
	CodeSessionPeerClosed:       "session: peer closed",
	CodeSessionRead:             "session: read error",
	CodeSessionWrite:            "session: write error",
	CodeSessionCookie:           "session: cookie check failed",
	CodeWorkerDispatchUnknown:   "worker: no handler for message type",
	CodeWorkerNoResponse:        "worker: handler requires no response",
	CodeWorkerSendFailed:        "worker: response send failed",
	CodeCertLoad:                "certificate: load failed",
	CodeCertHash:                "certificate: hash computation failed",
}

// String returns the human-readable message registered for the code, or
// the unknown-error message if none was registered.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return names[CodeUnknown]
}
