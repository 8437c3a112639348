package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fathomdds/rtps/rtps"
	"github.com/fathomdds/rtps/wire"
)

// discoverCmd builds the `rtpsd discover` one-shot diagnostic
// subcommand: run a participant with no user endpoints for a few
// SPDP periods, then print every peer detected with its vendor name
// resolved.
func discoverCmd(configFile *string) *cobra.Command {
	var periods int
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Listen for SPDP announcements for a few periods and print discovered peers",
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

			window := time.Duration(periods) * cfg.Participant.SPDPResendPeriod
			ctx, cancel := context.WithTimeout(context.Background(), window)
			defer cancel()

			if err := p.Start(ctx); err != nil {
				return err
			}
			fmt.Printf("listening on domain %d for %s...\n", cfg.Participant.DomainID, window)

			<-ctx.Done()
			if err := p.Stop(); err != nil {
				logger.Warnw("participant stop error", "err", err)
			}
			defer transport.Close()

			printDiscoveredPeers(p)
			return nil
		},
	}
	cmd.Flags().IntVar(&periods, "periods", 5, "Number of SPDP resend periods to listen for")
	return cmd
}

func printDiscoveredPeers(p *rtps.Participant) {
	fmt.Printf("local participant guid prefix: %s\n", p.GuidPrefix())

	peers := p.ListRemoteParticipants()
	if len(peers) == 0 {
		fmt.Println("no remote participants discovered")
		return
	}
	for _, pd := range peers {
		fmt.Printf("peer %s  vendor=%s  lease=%s  last_seen=%s\n",
			pd.GuidPrefix, wire.VendorName(pd.VendorID), pd.LeaseDuration, pd.LastSeen.Format(time.RFC3339))
	}
}
