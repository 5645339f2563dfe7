// Package httpapi is the inbound HTTP ingress (spec.md §4.6): a single
// GET /send_sms endpoint that submits an SMS through a bound SMPP peer.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
	"github.com/smppgw/bridge/internal/pdu"
	"github.com/smppgw/bridge/internal/peer"
	"github.com/smppgw/bridge/internal/router"
	"github.com/smppgw/bridge/internal/smpp"
)

// sendablePeer is the subset of *peer.Session the ingress endpoint needs,
// satisfied by whatever router.Route returns.
type sendablePeer interface {
	router.Peer
	Config() peer.Config
	Send(ctx context.Context, req pdu.PDU) (pdu.PDU, error)
}

// Config configures the HTTP ingress server.
type Config struct {
	Addr            string
	WaitForBound    time.Duration // default 15s, spec.md §4.6
	ResponseTimeout time.Duration // default 10s, spec.md §5
}

// Server is the GET /send_sms HTTP server.
type Server struct {
	http   *http.Server
	pool   *peer.Pool
	router *router.Router
	logger *zap.Logger
	conf   Config
}

// New builds a Server wired to the peer pool and router.
func New(cfg Config, pool *peer.Pool, rt *router.Router, logger *zap.Logger) *Server {
	if cfg.WaitForBound <= 0 {
		cfg.WaitForBound = 15 * time.Second
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 10 * time.Second
	}
	s := &Server{pool: pool, router: rt, logger: logger, conf: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/send_sms", s.handleSendSms)
	s.http = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving HTTP requests.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Handler returns the HTTP handler, for tests that want to drive requests
// through httptest.NewServer instead of a real listening socket.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleSendSms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, text := q.Get("from"), q.Get("to"), q.Get("text")

	var missing []string
	if from == "" {
		missing = append(missing, "from")
	}
	if to == "" {
		missing = append(missing, "to")
	}
	if text == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		http.Error(w, fmt.Sprintf("missing required parameters: %v", missing), http.StatusBadRequest)
		return
	}

	dcs := 0
	if v := q.Get("dcs"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid dcs parameter", http.StatusBadRequest)
			return
		}
		dcs = parsed
	}

	ctx := r.Context()

	if !s.pool.WaitForAnyBound(ctx, s.conf.WaitForBound) {
		http.Error(w, "No SMPP peer available", http.StatusServiceUnavailable)
		return
	}

	selected, err := s.router.Route(to)
	if err != nil {
		if errors.Is(err, bridgeerr.ErrNoPeer) {
			http.Error(w, "No SMPP peer available", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	target, ok := selected.(sendablePeer)
	if !ok {
		s.logger.Error("router returned a peer with no Send capability", zap.String("peer_id", selected.ID()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conf := target.Config()
	sourceTon, sourceNpi := orDefault(conf.SourceAddrTon), orDefault(conf.SourceAddrNpi)
	destTon, destNpi := orDefault(conf.DestAddrTon), orDefault(conf.DestAddrNpi)

	sendCtx, cancel := context.WithTimeout(ctx, s.conf.ResponseTimeout)
	defer cancel()

	resp, err := target.Send(sendCtx, &pdu.SubmitSm{
		SourceAddrTon:      sourceTon,
		SourceAddrNpi:      sourceNpi,
		SourceAddr:         from,
		DestAddrTon:        destTon,
		DestAddrNpi:        destNpi,
		DestinationAddr:    to,
		DataCoding:         dcs,
		ShortMessage:       text,
		RegisteredDelivery: pdu.ParseRegisteredDelivery(1),
	})
	if err != nil {
		if sendCtx.Err() != nil {
			s.logger.Warn("submit_sm timed out",
				zap.String("peer_id", target.ID()),
				zap.Error(fmt.Errorf("%w: %v", bridgeerr.ErrResponseTimeout, sendCtx.Err())))
			http.Error(w, "response timeout", http.StatusGatewayTimeout)
			return
		}
		if se, ok := err.(smpp.StatusError); ok {
			http.Error(w, fmt.Sprintf("Error: SMPP submit_sm failed (%d)", se.Status()), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	submitResp, ok := resp.(*pdu.SubmitSmResp)
	if !ok {
		http.Error(w, "unexpected response pdu", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "OK - message_id=%s", submitResp.MessageID)
}

func orDefault(v int) int {
	if v == 0 {
		return 1
	}
	return v
}
