package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
	"github.com/smppgw/bridge/internal/router"
)

type fakePeer struct {
	id    string
	bound bool
}

func (p *fakePeer) ID() string    { return p.id }
func (p *fakePeer) IsBound() bool { return p.bound }

func TestRouteMatchesRegexOverDefault(t *testing.T) {
	p1 := &fakePeer{id: "p1", bound: true}
	p2 := &fakePeer{id: "p2", bound: true}
	r := router.New([]router.Route{
		{Peer: p1, Regex: router.CompileRoute("p1", "^49", zap.NewNop())},
		{Peer: p2, IsDefault: true},
	}, zap.NewNop())

	got, err := r.Route("4911")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.(*fakePeer).id)

	got, err = r.Route("3342012856")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.(*fakePeer).id)
}

func TestRouteSkipsUnboundRegexPeer(t *testing.T) {
	p1 := &fakePeer{id: "p1", bound: false}
	p2 := &fakePeer{id: "p2", bound: true}
	r := router.New([]router.Route{
		{Peer: p1, Regex: router.CompileRoute("p1", "^49", zap.NewNop())},
		{Peer: p2, IsDefault: true},
	}, zap.NewNop())

	got, err := r.Route("4911")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.(*fakePeer).id)
}

func TestRouteNoPeerWhenNothingBound(t *testing.T) {
	p1 := &fakePeer{id: "p1", bound: false}
	r := router.New([]router.Route{{Peer: p1, IsDefault: true}}, zap.NewNop())

	_, err := r.Route("4911")
	require.ErrorIs(t, err, bridgeerr.ErrNoPeer)
}

func TestInvalidRegexStillEligibleAsDefault(t *testing.T) {
	p1 := &fakePeer{id: "p1", bound: true}
	re := router.CompileRoute("p1", "(unterminated", zap.NewNop())
	assert.Nil(t, re)
	r := router.New([]router.Route{{Peer: p1, Regex: re, IsDefault: true}}, zap.NewNop())

	got, err := r.Route("anything")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.(*fakePeer).id)
}
