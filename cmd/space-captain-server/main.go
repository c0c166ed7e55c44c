// Command space-captain-server runs both the legacy stream-mode front
// end and the secure DTLS front end against a shared work queue and
// worker pool.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/mgreenly/space-captain/config"
	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/metrics"
	"github.com/mgreenly/space-captain/pool"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/server/tcp"
	"github.com/mgreenly/space-captain/server/udp"
	"github.com/mgreenly/space-captain/session"
	"github.com/mgreenly/space-captain/state"
	"github.com/mgreenly/space-captain/worker"
)

var metricsAddr string

func main() {
	root := &cobra.Command{
		Use:   "space-captain-server",
		Short: "Runs the space-captain stream and secure game-protocol front ends",
		RunE:  run,
	}
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "optional address to serve Prometheus metrics on, e.g. :9090")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	log := logger.NewStderr(logger.InfoLevel)
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", err)
		return err
	}

	dtlsCtx, err := session.NewServerContext(cfg.ServerCert, cfg.ServerKey)
	if err != nil {
		log.Error("failed to initialize secure transport", err, logger.Fields{
			"cert": cfg.ServerCert, "key": cfg.ServerKey,
		})
		return err
	}

	q, err := queue.New(cfg.QueueDepth)
	if err != nil {
		log.Error("failed to build work queue", err)
		return err
	}
	connPool := pool.New(cfg.PoolSize, log)
	store := state.New()
	tickDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickDone:
				return
			case <-ticker.C:
				store.Tick()
			}
		}
	}()
	coll := metrics.New()

	wpool := worker.New(q, worker.DefaultTable(), store, log)
	wpool.SetRecorder(coll)
	wpool.Start(cfg.WorkerCount)

	tcpSrv, err := tcp.Listen(cfg.TCPAddr, connPool, q, log)
	if err != nil {
		log.Error("failed to start stream-mode listener", err, logger.Fields{"addr": cfg.TCPAddr})
		return err
	}
	go func() {
		if err := tcpSrv.Serve(); err != nil {
			log.Debug("stream-mode listener stopped", logger.Fields{"error": err.Error()})
		}
	}()

	udpSrv, err := udp.Listen(cfg.UDPAddr, dtlsCtx, q, log)
	if err != nil {
		log.Error("failed to start secure listener", err, logger.Fields{"addr": cfg.UDPAddr})
		return err
	}
	go func() {
		if err := udpSrv.Serve(); err != nil {
			log.Debug("secure listener stopped", logger.Fields{"error": err.Error()})
		}
	}()

	if metricsAddr != "" {
		go func() {
			log.Info("serving metrics", logger.Fields{"addr": metricsAddr})
			if err := http.ListenAndServe(metricsAddr, coll.Handler()); err != nil { //nolint:gosec // operator-chosen loopback/private address
				log.Warn("metrics server stopped", logger.Fields{"error": err.Error()})
			}
		}()
	}

	log.Info("space-captain-server started", logger.Fields{
		"tcp_addr": tcpSrv.Addr().String(),
		"udp_addr": udpSrv.Addr().String(),
		"workers":  cfg.WorkerCount,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")
	close(tickDone)

	var shutdownErr *multierror.Error
	shutdownErr = multierror.Append(shutdownErr, tcpSrv.Close())
	shutdownErr = multierror.Append(shutdownErr, udpSrv.Close())
	wpool.Stop(5 * time.Second)
	q.NukeWithCleanup(nil)
	connPool.Cleanup()

	if err := shutdownErr.ErrorOrNil(); err != nil {
		log.Warn("errors during shutdown", logger.Fields{"error": err.Error()})
	}
	log.Info("space-captain-server stopped")
	return nil
}
