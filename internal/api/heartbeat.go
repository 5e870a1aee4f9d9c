package api

import (
	"context"
	"math/rand"
	"time"

	"github.com/rushdelivery/rush-core/internal/tracking"
)

// runHeartbeat drives the periodic dashboard tick. Each tick pushes a
// heartbeat frame to every client and, with the configured probability,
// advances one undelivered parcel to a new status so dashboards have
// live movement to render. The tick cadence is independent of event
// pushes: store mutations broadcast immediately, heartbeats keep their
// own schedule.
func (s *Server) runHeartbeat(ctx context.Context) {
	interval := s.cfg.HeartbeatInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("dashboard heartbeat started",
		"interval", interval,
		"simulate_probability", s.cfg.WebSocket.SimulateProbability,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("dashboard heartbeat stopped")
			return
		case <-ticker.C:
			s.hub.BroadcastHeartbeat()
			if s.onTick != nil {
				s.onTick(s.hub.ClientCount())
			}
			if rand.Float64() < s.cfg.WebSocket.SimulateProbability {
				s.simulateParcelMovement()
			}
		}
	}
}

// simulateParcelMovement picks a random undelivered parcel and moves it
// to a different non-terminal status through the store, so the change
// flows through the same validation and event path as a real update.
func (s *Server) simulateParcelMovement() {
	parcel, ok := s.store.RandomUndeliveredParcel(rand.Intn)
	if !ok {
		return
	}

	next := randomOtherStatus(parcel.Status)
	if next == "" {
		return
	}

	updated, err := s.store.UpdateParcel(parcel.ID, tracking.ParcelPatch{Status: &next})
	if err != nil {
		// Status-order enforcement can legitimately reject a random
		// draw; skip this tick.
		s.logger.Debug("simulated movement rejected", "tracking_id", parcel.TrackingID, "error", err)
		return
	}

	// The store already broadcast the change; the tick additionally
	// pushes its own frame so dashboards see movement even if they
	// joined between the mutation and this tick.
	s.hub.Broadcast(string(tracking.EventParcelUpdate), updated)
}

// randomOtherStatus draws a non-terminal status different from current.
func randomOtherStatus(current tracking.ParcelStatus) tracking.ParcelStatus {
	choices := make([]tracking.ParcelStatus, 0, len(tracking.NonTerminalStatuses))
	for _, status := range tracking.NonTerminalStatuses {
		if status != current {
			choices = append(choices, status)
		}
	}
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}
