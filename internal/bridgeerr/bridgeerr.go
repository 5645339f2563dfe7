// Package bridgeerr declares the typed error taxonomy the bridge uses to
// decide how a failure propagates: back to an HTTP caller, into a log line,
// or into a reconnect decision.
package bridgeerr

import "errors"

var (
	// ErrConfigInvalid means the configuration failed to load or validate.
	// Fatal at startup.
	ErrConfigInvalid = errors.New("bridge: invalid configuration")
	// ErrPDUMalformed means a PDU failed to frame or decode. The offending
	// connection is closed.
	ErrPDUMalformed = errors.New("bridge: malformed pdu")
	// ErrBindRejected means a peer rejected our bind_transceiver.
	ErrBindRejected = errors.New("bridge: bind rejected")
	// ErrResponseTimeout means a request PDU got no response before its
	// deadline.
	ErrResponseTimeout = errors.New("bridge: response timeout")
	// ErrEgressFailed means the HTTP egress call exhausted its retries.
	ErrEgressFailed = errors.New("bridge: egress failed")
	// ErrNoPeer means the router found no bound peer for a destination.
	ErrNoPeer = errors.New("bridge: no peer available")
	// ErrAuthFail means an inbound ESME bind failed credential lookup.
	ErrAuthFail = errors.New("bridge: auth failed")
)
