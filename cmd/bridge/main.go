// Command bridge runs the HTTP⇄SMPP gateway: a pool of outbound SMPP peer
// sessions, an inbound SMPP server for ESMEs, and an HTTP ingress/egress
// pair bridging both to a Kamailio-style HTTP control plane.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smppgw/bridge/internal/config"
	"github.com/smppgw/bridge/internal/egress"
	"github.com/smppgw/bridge/internal/httpapi"
	"github.com/smppgw/bridge/internal/logging"
	"github.com/smppgw/bridge/internal/peer"
	"github.com/smppgw/bridge/internal/router"
	"github.com/smppgw/bridge/internal/smppserver"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to the bridge's YAML configuration")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fail(err)
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	logger, err := logging.New(logging.Config{
		FilePath:       cfg.Logging.FilePath,
		MaxSize:        cfg.Logging.MaxSize,
		MaxFiles:       cfg.Logging.MaxFiles,
		ConsoleEnabled: cfg.Logging.ConsoleEnabled,
		LogLevel:       cfg.Logging.LogLevel,
	})
	if err != nil {
		fail(err)
	}
	defer logger.Sync()

	egressClient := egress.NewHTTPClient(cfg.HTTPServer.KamailioURL, logger)

	pool := peer.NewPool()
	var routes []router.Route
	for _, p := range cfg.SMPPPeers {
		sess := peer.NewSession(peer.Config{
			ID:                p.ID,
			Address:           p.Addr(),
			SystemID:          p.SystemID,
			Password:          p.Password,
			SystemType:        p.SystemType,
			SourceAddrTon:     p.SourceAddrTon,
			SourceAddrNpi:     p.SourceAddrNpi,
			DestAddrTon:       p.DestAddrTon,
			DestAddrNpi:       p.DestAddrNpi,
			ReconnectInterval: p.ReconnectIntervalDuration(),
			IsDefault:         p.Default,
		}, egressClient, logger)
		pool.Add(sess)
		routes = append(routes, router.Route{
			Peer:      sess,
			Regex:     router.CompileRoute(p.ID, p.RouteRegex, logger),
			IsDefault: p.Default,
		})
	}
	rt := router.New(routes, logger)

	ctx, cancel := context.WithCancel(context.Background())
	var peerWG sync.WaitGroup
	for _, sess := range pool.All() {
		peerWG.Add(1)
		go func(sess *peer.Session) {
			defer peerWG.Done()
			sess.Run(ctx)
		}(sess)
	}

	var auth []smppserver.AuthCredential
	for _, a := range cfg.SMPPServer.Auth {
		auth = append(auth, smppserver.AuthCredential{SystemID: a.SystemID, Password: a.Password})
	}
	smppSrv := smppserver.New(smppserver.Config{
		Addr: cfg.SMPPServer.Addr(),
		Auth: auth,
	}, egressClient, logger)

	httpSrv := httpapi.New(httpapi.Config{Addr: cfg.HTTPServer.Addr()}, pool, rt, logger)

	go func() {
		logger.Info("smpp server listening", zap.String("addr", cfg.SMPPServer.Addr()))
		if err := smppSrv.ListenAndServe(); err != nil {
			logger.Error("smpp server stopped", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("http ingress listening", zap.String("addr", cfg.HTTPServer.Addr()))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http ingress stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http ingress shutdown error", zap.Error(err))
	}
	if err := smppSrv.Close(); err != nil {
		logger.Error("smpp server close error", zap.Error(err))
	}

	peerDone := make(chan struct{})
	go func() {
		peerWG.Wait()
		close(peerDone)
	}()
	select {
	case <-peerDone:
	case <-shutdownCtx.Done():
		logger.Warn("peer sessions did not drain before shutdown timeout")
	}
	logger.Info("shutdown complete")
}

// fail reports a fatal startup error and exits 1, per spec.md §6's exit
// codes (config load failure or empty smpp_peers).
func fail(err error) {
	fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
	os.Exit(1)
}
