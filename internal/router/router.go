// Package router selects a bound SMPP peer for an outbound message by
// matching the destination address against per-peer regexes, falling back
// to a configured default peer. See spec.md §4.4.
package router

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/bridgeerr"
)

// Peer is the subset of peer.PeerSession the router needs. Kept narrow so
// the router can be tested without spinning up real sessions.
type Peer interface {
	ID() string
	IsBound() bool
}

// Route holds one routing entry in configuration order: the peer it
// selects and its compiled regex, if any. A peer with an invalid regex
// keeps a nil Regex and is skipped for regex matching, but can still be
// the default.
type Route struct {
	Peer      Peer
	Regex     *regexp.Regexp
	IsDefault bool
}

// CompileRoute compiles pattern for a peer. An empty pattern yields a nil
// Regex (no regex-based routing for this peer). A compile error is logged
// once and also yields a nil Regex — the peer keeps its default-fallback
// eligibility per spec.md §9.
func CompileRoute(peerID, pattern string, logger *zap.Logger) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Error("invalid route_regex, peer excluded from regex routing",
			zap.String("peer_id", peerID), zap.String("pattern", pattern), zap.Error(err))
		return nil
	}
	return re
}

// Router selects a bound peer for a destination address.
type Router struct {
	routes []Route
	logger *zap.Logger
}

// New builds a Router from routes in configuration order. Order determines
// match priority and is also the default-peer tie-break.
func New(routes []Route, logger *zap.Logger) *Router {
	return &Router{routes: routes, logger: logger}
}

// Route selects a bound peer for destination address to, per spec.md §4.4:
// first regex match wins; failing that, the bound default peer; failing
// that, bridgeerr.ErrNoPeer.
func (r *Router) Route(to string) (Peer, error) {
	var fallback Peer
	for _, route := range r.routes {
		if !route.Peer.IsBound() {
			continue
		}
		if route.Regex != nil && route.Regex.MatchString(to) {
			return route.Peer, nil
		}
		if route.IsDefault && fallback == nil {
			fallback = route.Peer
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, bridgeerr.ErrNoPeer
}
