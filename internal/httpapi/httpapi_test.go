package httpapi_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/egress"
	"github.com/smppgw/bridge/internal/httpapi"
	"github.com/smppgw/bridge/internal/pdu"
	"github.com/smppgw/bridge/internal/peer"
	"github.com/smppgw/bridge/internal/router"
)

type noopEgress struct{}

func (noopEgress) Send(ctx context.Context, msg egress.Message) error { return nil }

// stubSmsc accepts one bind_transceiver and replies OK, then answers every
// submit_sm with the given status/message_id.
func stubSmsc(t *testing.T, status pdu.Status, msgID string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		dec := pdu.NewDecoder(conn)
		enc := pdu.NewEncoder(conn, pdu.NewSequencer(1))

		h, p, err := dec.Decode()
		if err != nil {
			return
		}
		bindReq := p.(*pdu.BindTRx)
		enc.Encode(bindReq.Response("SMSC"), pdu.EncodeStatus(pdu.StatusOK), pdu.EncodeSeq(h.Sequence()))

		for {
			h, p, err := dec.Decode()
			if err != nil {
				return
			}
			sm, ok := p.(*pdu.SubmitSm)
			if !ok {
				continue
			}
			enc.Encode(sm.Response(msgID), pdu.EncodeStatus(status), pdu.EncodeSeq(h.Sequence()))
		}
	}()
	return ln.Addr().String()
}

func newBoundPeer(t *testing.T, addr string) *peer.Session {
	t.Helper()
	sess := peer.NewSession(peer.Config{
		ID:                "p1",
		Address:           addr,
		SystemID:          "ESME",
		Password:          "secret",
		ReconnectInterval: 50 * time.Millisecond,
		IsDefault:         true,
	}, noopEgress{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Run(ctx)
	require.Eventually(t, sess.IsBound, time.Second, 5*time.Millisecond)
	return sess
}

func newTestServer(t *testing.T, sess *peer.Session) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	pool := peer.NewPool()
	pool.Add(sess)
	rt := router.New([]router.Route{{Peer: sess, IsDefault: true}}, logger)
	srv := httpapi.New(httpapi.Config{WaitForBound: time.Second, ResponseTimeout: 2 * time.Second}, pool, rt, logger)
	return httptest.NewServer(srv.Handler())
}

func TestSendSmsSuccess(t *testing.T) {
	addr := stubSmsc(t, pdu.StatusOK, "A1")
	sess := newBoundPeer(t, addr)
	ts := newTestServer(t, sess)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/send_sms?from=100&to=200&text=hi&dcs=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK - message_id=A1", string(body))
}

func TestSendSmsMissingParams(t *testing.T) {
	addr := stubSmsc(t, pdu.StatusOK, "A1")
	sess := newBoundPeer(t, addr)
	ts := newTestServer(t, sess)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/send_sms?to=200&text=hi")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendSmsSubmitFailure(t *testing.T) {
	addr := stubSmsc(t, pdu.StatusThrottled, "")
	sess := newBoundPeer(t, addr)
	ts := newTestServer(t, sess)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/send_sms?from=100&to=200&text=hi")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSendSmsNoPeerBound(t *testing.T) {
	logger := zap.NewNop()
	sess := peer.NewSession(peer.Config{
		ID:                "p1",
		Address:           "127.0.0.1:1", // nothing listening
		SystemID:          "ESME",
		Password:          "secret",
		ReconnectInterval: 10 * time.Millisecond,
		IsDefault:         true,
	}, noopEgress{}, logger)
	pool := peer.NewPool()
	pool.Add(sess)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	rt := router.New([]router.Route{{Peer: sess, IsDefault: true}}, logger)
	srv := httpapi.New(httpapi.Config{WaitForBound: 100 * time.Millisecond, ResponseTimeout: time.Second}, pool, rt, logger)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/send_sms?from=100&to=200&text=hi")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
