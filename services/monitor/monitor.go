// Package monitor follows a node's lifecycle on the bus and keeps a running
// tally of cycle outcomes. The simulator uses it for its live log.
package monitor

import (
	"context"
	"log/slog"
	"sync"

	"sensornode-go/bus"
	"sensornode-go/types"
	"sensornode-go/x/logx"
)

var topicNode = bus.Topic{"node", bus.Single}

type Summary struct {
	Boots     int
	ByOutcome map[string]int
	Last      types.Report
}

type Service struct {
	mu    sync.Mutex
	boots int
	by    map[string]int
	last  types.Report
	log   *slog.Logger
}

func New(log *slog.Logger) *Service {
	return &Service{by: make(map[string]int), log: logx.Module(log, "monitor")}
}

// Start subscribes on conn and follows until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicNode)
	go s.loop(ctx, conn, sub)
}

func (s *Service) loop(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			switch p := msg.Payload.(type) {
			case string:
				s.log.Debug("state", "state", p)
			case types.Report:
				s.record(p)
			}
		}
	}
}

func (s *Service) record(r types.Report) {
	s.mu.Lock()
	s.boots++
	s.by[r.Outcome.String()]++
	s.last = r
	boots := s.boots
	s.mu.Unlock()
	s.log.Info("cycle report",
		"boot", boots,
		"outcome", r.Outcome.String(),
		"id", string(r.Identity),
		"temperature", r.Reading.Temperature,
		"humidity", r.Reading.Humidity,
		"action", r.Action.Kind.String(),
	)
}

func (s *Service) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	by := make(map[string]int, len(s.by))
	for k, v := range s.by {
		by[k] = v
	}
	return Summary{Boots: s.boots, ByOutcome: by, Last: s.last}
}
