// Command slugpay runs the paywall gateway: an HTTP front for individually
// priced content slugs, unlocked by ledger micropayments confirmed through
// the node's event stream.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tangleworks/slugpay/cms"
	"github.com/tangleworks/slugpay/config"
	"github.com/tangleworks/slugpay/gateway"
	"github.com/tangleworks/slugpay/ledger"
	"github.com/tangleworks/slugpay/notify"
	"github.com/tangleworks/slugpay/paywall"
)

func main() {
	configPath := flag.String("config", os.Getenv("SLUGPAY_CONFIG"), "path to the YAML config file")
	flag.Parse()

	log := newLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	cmsClient, err := cms.NewClient(cfg.CMS.URL, cfg.CMS.AdminKey)
	if err != nil {
		log.Fatal().Err(err).Msg("creating CMS client")
	}
	nodeClient := ledger.NewNodeClient(cfg.Node.URL, log)

	queue := ledger.NewQueue()
	matcher := ledger.NewMatcher(cfg.ReceivingAddress, cfg.Price)
	entitlements := paywall.NewEntitlementStore()
	sessions := paywall.NewSessionRegistry()
	hub := notify.NewHub(log)

	worker := paywall.NewWorker(log, queue, nodeClient, matcher, entitlements, sessions, hub)
	server := gateway.NewServer(log, cfg, cmsClient, entitlements, sessions, hub)

	// The worker is not cancelled via context; it exits on the stop sentinel
	// after finishing at most one in-flight item.
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(context.Background())
	}()

	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	go func() {
		topic := ledger.OutputsTopic(cfg.ReceivingAddress)
		err := nodeClient.Subscribe(subCtx, topic, func(raw []byte) {
			ev, err := ledger.ParseEvent(raw)
			if err != nil {
				log.Warn().Err(err).Msg("dropping undecodable event frame")
				return
			}
			queue.Push(ev)
		})
		if err != nil && subCtx.Err() == nil {
			log.Error().Err(err).Msg("event subscription ended")
		}
	}()

	go func() {
		if err := server.Run(); err != nil {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	cancelSub()
	queue.PushStop()

	select {
	case <-workerDone:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("worker did not drain in time")
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("SLUGPAY_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
