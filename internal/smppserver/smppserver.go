// Package smppserver is the inbound-ESME SMPP server (spec.md §4.5): it
// authenticates bind requests against a configured credential set and
// forwards bound ESMEs' submit_sm traffic to HTTP egress.
package smppserver

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
	"github.com/smppgw/bridge/internal/egress"
	"github.com/smppgw/bridge/internal/logging"
	"github.com/smppgw/bridge/internal/pdu"
	"github.com/smppgw/bridge/internal/smpp"
)

// gatewaySystemID is returned to ESMEs on a successful bind, per spec.md §4.5.
const gatewaySystemID = "SMPP-GATEWAY"

// AuthCredential is one configured (system_id, password) pair an ESME may
// bind with.
type AuthCredential struct {
	SystemID string
	Password string
}

// Config configures the server.
type Config struct {
	Addr            string
	Auth            []AuthCredential
	ResponseTimeout time.Duration
}

// Server wraps internal/smpp.Server with the bind-authentication and
// submit_sm-to-egress Handler spec.md §4.5 describes.
type Server struct {
	srv *smpp.Server
}

// New builds a Server. Call ListenAndServe to start accepting connections.
func New(cfg Config, egressClient egress.Client, logger *zap.Logger) *Server {
	h := &handler{auth: cfg.Auth, egress: egressClient, logger: logger}
	srv := smpp.NewServer(cfg.Addr, smpp.SessionConf{
		Logger:        logging.SMPPAdapter{Logger: logger},
		Handler:       h,
		WindowTimeout: cfg.ResponseTimeout,
	})
	return &Server{srv: srv}
}

// ListenAndServe blocks accepting inbound ESME connections.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Close stops accepting connections and closes all active sessions.
func (s *Server) Close() error {
	return s.srv.Close()
}

type handler struct {
	auth   []AuthCredential
	egress egress.Client
	logger *zap.Logger
}

func (h *handler) ServeSMPP(ctx *smpp.Context) {
	switch ctx.CommandID() {
	case pdu.BindTransmitterID:
		req, err := ctx.BindTx()
		if err != nil {
			ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
			return
		}
		h.bind(ctx, req.SystemID, req.Password, req.Response(gatewaySystemID))
	case pdu.BindReceiverID:
		req, err := ctx.BindRx()
		if err != nil {
			ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
			return
		}
		h.bind(ctx, req.SystemID, req.Password, req.Response(gatewaySystemID))
	case pdu.BindTransceiverID:
		req, err := ctx.BindTRx()
		if err != nil {
			ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
			return
		}
		h.bind(ctx, req.SystemID, req.Password, req.Response(gatewaySystemID))
	case pdu.SubmitSmID:
		h.handleSubmitSm(ctx)
	case pdu.UnbindID:
		req, err := ctx.Unbind()
		if err != nil {
			ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
			return
		}
		ctx.Respond(req.Response(), pdu.StatusOK)
		ctx.CloseSession()
	default:
		ctx.Respond(&pdu.GenericNack{}, pdu.StatusInvCmdID)
	}
}

// bind checks systemID/password against the configured credential set and
// replies per spec.md §4.5: ESME_RBINDFAIL and a closed connection on
// mismatch, command_status=0 with system_id="SMPP-GATEWAY" on match.
func (h *handler) bind(ctx *smpp.Context, systemID, password string, resp pdu.PDU) {
	if !h.authenticate(systemID, password) {
		h.logger.Warn("bind rejected: unknown credentials",
			zap.String("system_id", systemID),
			zap.Error(fmt.Errorf("%w: system_id=%s", bridgeerr.ErrAuthFail, systemID)))
		ctx.Respond(resp, pdu.StatusBindFail)
		ctx.CloseSession()
		return
	}
	if err := ctx.Respond(resp, pdu.StatusOK); err != nil {
		h.logger.Error("responding to bind failed", zap.Error(err))
	}
}

func (h *handler) authenticate(systemID, password string) bool {
	for _, cred := range h.auth {
		if cred.SystemID == systemID && cred.Password == password {
			return true
		}
	}
	return false
}

// handleSubmitSm implements spec.md §4.5's submit_sm handling: forward to
// HTTP egress, reply success with a locally generated message_id or
// ESME_RSYSERR once egress retries are exhausted.
func (h *handler) handleSubmitSm(ctx *smpp.Context) {
	req, err := ctx.SubmitSm()
	if err != nil {
		ctx.Respond(&pdu.GenericNack{}, pdu.StatusSysErr)
		return
	}

	msg := egress.Message{
		From:       req.SourceAddr,
		To:         req.DestinationAddr,
		Text:       req.ShortMessage,
		DataCoding: req.DataCoding,
		EsmClass:   int(req.EsmClass.Byte()),
	}
	if err := h.egress.Send(ctx.Context(), msg); err != nil {
		h.logger.Error("submit_sm egress failed", zap.String("to", req.DestinationAddr), zap.Error(err))
		ctx.Respond(req.Response(""), pdu.StatusSysErr)
		return
	}

	msgID := fmt.Sprintf("msg-%d", time.Now().UnixMilli())
	ctx.Respond(req.Response(msgID), pdu.StatusOK)
}
