package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fathomdds/rtps/rtps"
	"github.com/fathomdds/rtps/rtps/metrics"
	"github.com/fathomdds/rtps/transport/udpnet"
)

// runCmd builds the `rtpsd run` subcommand: start a participant and
// block until an interrupt or SIGTERM.
func runCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the RTPS participant and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntimeConfig(*configFile)
			if err != nil {
				return err
			}

			logger, flush, err := newZapLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer flush()

			p, transport, err := buildParticipant(cfg, logger)
			if err != nil {
				return err
			}

			var metricsSrv *http.Server
			if cfg.Metrics.Enabled {
				metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler()}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Warnw("metrics server exited", "err", err)
					}
				}()
				logger.Infow("metrics listening", "addr", cfg.Metrics.Addr)
			}

			demoPublisher, _ := wireDemoTopics(p, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := p.Start(ctx); err != nil {
				return err
			}
			logger.Infow("participant started",
				"guid_prefix", p.GuidPrefix().String(),
				"domain_id", cfg.Participant.DomainID,
				"participant_id", cfg.Participant.ParticipantID,
			)

			go publishChatter(ctx, demoPublisher, p.GuidPrefix().String())

			<-ctx.Done()
			logger.Infow("shutting down")

			if err := p.Stop(); err != nil {
				logger.Warnw("participant stop error", "err", err)
			}
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
			return transport.Close()
		},
	}
}

// buildParticipant wires a udpnet.Adapter and an rtps.Participant
// together, deriving the participant's GuidPrefix from the interface
// hardware address plus a uuid-derived suffix. A pid-based suffix
// would collide across containers sharing a pid namespace.
func buildParticipant(cfg *runtimeConfig, logger *zapLogger) (*rtps.Participant, *udpnet.Adapter, error) {
	transport, err := udpnet.New(cfg.Participant.NetworkInterface, logger)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.New()
	var suffix [4]byte
	copy(suffix[:], id[:4])
	guidPrefix := transport.NewGuidPrefix(cfg.Participant.VendorID, suffix)

	p := rtps.NewParticipant(guidPrefix, cfg.Participant, transport, logger)
	return p, transport, nil
}

// wireDemoTopics creates a "chatter" publisher and subscriber so
// `rtpsd run` is directly observable without a second process.
func wireDemoTopics(p *rtps.Participant, logger *zapLogger) (*rtps.StatefulWriter, *rtps.StatefulReader) {
	topic := rtps.TopicData{
		TopicName:   "chatter",
		TypeName:    "std_msgs/String",
		Reliability: rtps.Reliable,
		TopicKind:   rtps.WithKey,
	}
	w := p.NewWriter(topic)
	r := p.NewReader(topic)
	sr, ok := r.(*rtps.StatefulReader)
	if !ok {
		return w, nil
	}
	sr.RegisterCallback(func(v rtps.SampleView) {
		logger.Infow("chatter sample", "writer", v.WriterGUID.String(), "sn", int64(v.SequenceNumber), "payload", string(v.Payload))
	})
	return w, sr
}

// publishChatter periodically publishes a sample on the demo
// "chatter" topic, mirroring a minimal talker/listener pair until ctx
// is cancelled.
func publishChatter(ctx context.Context, w *rtps.StatefulWriter, guidPrefix string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			w.NewChange(rtps.ChangeAlive, []byte(fmt.Sprintf("hello from %s #%d", guidPrefix, n)))
		}
	}
}
