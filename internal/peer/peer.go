// Package peer supervises long-lived client sessions to upstream SMPP
// peers: dial, bind_transceiver, reconnect on loss, and deliver_sm
// forwarding to the HTTP egress collaborator. See spec.md §3-4.2.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
	"github.com/smppgw/bridge/internal/egress"
	"github.com/smppgw/bridge/internal/logging"
	"github.com/smppgw/bridge/internal/pdu"
	"github.com/smppgw/bridge/internal/smpp"
)

// Config is the immutable, per-peer configuration loaded at startup
// (spec.md §3 PeerConfig).
type Config struct {
	ID                string
	Address           string
	SystemID          string
	Password          string
	SystemType        string
	SourceAddrTon     int
	SourceAddrNpi     int
	DestAddrTon       int
	DestAddrNpi       int
	ReconnectInterval time.Duration
	ResponseTimeout   time.Duration
	RouteRegex        string
	IsDefault         bool
}

// State is a Session's place in the spec.md §4.2 state diagram.
type State int32

// States of the client session state machine.
const (
	Disconnected State = iota
	Connecting
	Binding
	Bound
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Binding:
		return "BINDING"
	case Bound:
		return "BOUND"
	case Closing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Session is one PeerSession: process-lifetime supervisor around an
// internal/smpp.Session bound to a single configured upstream peer.
type Session struct {
	conf   Config
	egress egress.Client
	logger *zap.Logger

	state atomic.Int32

	mu       sync.Mutex
	sess     *smpp.Session
	notifyCh chan struct{}
}

// NewSession builds a supervised peer session. Call Run to start the
// connect/bind/reconnect loop.
func NewSession(conf Config, egressClient egress.Client, logger *zap.Logger) *Session {
	if conf.ReconnectInterval <= 0 {
		conf.ReconnectInterval = 10 * time.Second
	}
	if conf.ResponseTimeout <= 0 {
		conf.ResponseTimeout = 10 * time.Second
	}
	return &Session{
		conf:     conf,
		egress:   egressClient,
		logger:   logger.With(zap.String("peer_id", conf.ID)),
		notifyCh: make(chan struct{}),
	}
}

// ID is the configured peer id.
func (s *Session) ID() string { return s.conf.ID }

// Config returns the peer's immutable configuration.
func (s *Session) Config() Config { return s.conf }

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

// IsBound reports whether the session is currently BOUND, the only state
// from which the router (spec.md §4.4) may select it.
func (s *Session) IsBound() bool { return s.State() == Bound }

func (s *Session) setState(st State) {
	s.mu.Lock()
	old := State(s.state.Swap(int32(st)))
	changed := (old == Bound) != (st == Bound)
	if changed {
		close(s.notifyCh)
		s.notifyCh = make(chan struct{})
	}
	s.mu.Unlock()
	s.logger.Info("peer state transition", zap.String("from", old.String()), zap.String("to", st.String()))
}

// changed returns a channel that's closed the next time the session
// transitions into or out of BOUND. Pool.WaitForAnyBound does not use it;
// it polls the sessions' states instead.
func (s *Session) changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifyCh
}

// Send writes a request PDU to the currently bound session, if any.
func (s *Session) Send(ctx context.Context, req pdu.PDU) (pdu.PDU, error) {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return nil, smpp.Error{Msg: "peer: session not bound", Temp: true}
	}
	return sess.Send(ctx, req)
}

// Run dials, binds, and reconnects at Config.ReconnectInterval until ctx is
// cancelled. It never returns early on a single failed attempt — it always
// schedules the next one per spec.md §4.2's reconnect policy. Intended to
// run for the process lifetime in its own goroutine.
func (s *Session) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.setState(Closing)
			return
		}
		s.connectAndServe(ctx)
		if ctx.Err() != nil {
			s.setState(Closing)
			return
		}
		s.setState(Disconnected)
		select {
		case <-ctx.Done():
			s.setState(Closing)
			return
		case <-time.After(s.conf.ReconnectInterval):
		}
	}
}

// connectAndServe performs one dial+bind+serve cycle. It returns once the
// underlying connection is gone (bind rejected, bind timeout, or the bound
// session closed), leaving reconnect scheduling to Run.
func (s *Session) connectAndServe(ctx context.Context) {
	s.setState(Connecting)
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := d.DialContext(dialCtx, "tcp", s.conf.Address)
	cancel()
	if err != nil {
		s.logger.Error("dial failed", zap.Error(err))
		return
	}

	sess := smpp.NewSession(conn, smpp.SessionConf{
		Type:          smpp.ESME,
		SystemID:      s.conf.SystemID,
		ID:            s.conf.ID,
		WindowTimeout: s.conf.ResponseTimeout,
		Logger:        logging.SMPPAdapter{Logger: s.logger},
		Handler:       smpp.HandlerFunc(s.serveSMPP),
	})

	s.setState(Binding)
	bindCtx, bindCancel := context.WithTimeout(ctx, s.conf.ResponseTimeout)
	resp, err := sess.Send(bindCtx, &pdu.BindTRx{
		SystemID:         s.conf.SystemID,
		Password:         s.conf.Password,
		SystemType:       s.conf.SystemType,
		InterfaceVersion: smpp.Version,
	})
	bindCancel()
	if err != nil {
		s.logBindFailure(err)
		sess.Close()
		return
	}
	if resp.CommandID() != pdu.BindTransceiverRespID {
		s.logger.Error("unexpected bind response", zap.Any("command_id", resp.CommandID()))
		sess.Close()
		return
	}

	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	s.setState(Bound)

	select {
	case <-sess.NotifyClosed():
	case <-ctx.Done():
		// Process shutdown while BOUND: tell the peer we're leaving
		// instead of just dropping the socket (spec.md §5).
		unbindCtx, unbindCancel := context.WithTimeout(context.Background(), s.conf.ResponseTimeout)
		if err := smpp.Unbind(unbindCtx, sess); err != nil {
			s.logger.Warn("unbind on shutdown failed", zap.Error(err))
		}
		unbindCancel()
	}

	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()
}

// logBindFailure decodes the ESME_RBINDFAIL / ESME_RINVPASWD diagnostics
// spec.md §4.2 calls out explicitly, falling back to a generic message.
func (s *Session) logBindFailure(err error) {
	if se, ok := err.(smpp.StatusError); ok {
		wrapped := fmt.Errorf("%w: %v", bridgeerr.ErrBindRejected, se)
		switch se.Status() {
		case pdu.StatusBindFail:
			s.logger.Error("bind rejected: ESME_RBINDFAIL", zap.Error(wrapped))
			return
		case pdu.StatusInvPaswd:
			s.logger.Error("bind rejected: ESME_RINVPASWD", zap.Error(wrapped))
			return
		}
		s.logger.Error("bind rejected", zap.Error(wrapped))
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Error("bind failed", zap.Error(fmt.Errorf("%w: %v", bridgeerr.ErrResponseTimeout, err)))
		return
	}
	s.logger.Error("bind failed", zap.Error(err))
}

// serveSMPP handles PDU requests the peer sends us while bound: deliver_sm
// (spec.md §4.2's deliver-SM handling) and enquire_link is already answered
// by the session engine before reaching here.
func (s *Session) serveSMPP(ctx *smpp.Context) {
	switch ctx.CommandID() {
	case pdu.DeliverSmID:
		s.handleDeliverSm(ctx)
	default:
		ctx.Respond(&pdu.GenericNack{}, pdu.StatusInvCmdID)
	}
}

func (s *Session) handleDeliverSm(ctx *smpp.Context) {
	dsm, err := ctx.DeliverSm()
	if err != nil {
		s.logger.Error("deliver_sm cast failed", zap.Error(err))
		ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
		return
	}

	isReceipt := dsm.EsmClass.Byte()&0x04 != 0
	msg := egress.Message{
		From:       dsm.SourceAddr,
		To:         dsm.DestinationAddr,
		Text:       dsm.ShortMessage,
		DataCoding: dsm.DataCoding,
		EsmClass:   int(dsm.EsmClass.Byte()),
		IsReceipt:  isReceipt,
	}
	if isReceipt {
		if dr, err := pdu.ParseDeliveryReceipt(dsm.ShortMessage); err == nil {
			msg.ReceiptID = dr.Id
			msg.ReceiptStatus = string(dr.Stat)
		}
	}

	// deliver_sm_resp is acknowledged regardless of egress outcome
	// (spec.md §7 EGRESS_FAILED) — at-most-once upstream retries are
	// worse than a local delivery-receipt loss.
	if err := s.egress.Send(ctx.Context(), msg); err != nil {
		s.logger.Error("egress failed for deliver_sm", zap.Error(err), zap.Bool("is_receipt", isReceipt))
	}

	if err := ctx.Respond(dsm.Response(""), pdu.StatusOK); err != nil {
		s.logger.Error("responding to deliver_sm failed", zap.Error(err))
	}
}
