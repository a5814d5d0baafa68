package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Simulator is a demo event source: on a fixed interval, with a small
// per-tick probability, it synthesizes a notification from a template set.
// It is an explicit, injectable component rather than a module-level timer,
// so tests simply never start it. Real deployments can replace it with a
// genuine event subscription without touching the feed contract.
type Simulator struct {
	feed        *Feed
	logger      *slog.Logger
	interval    time.Duration
	probability float64
	rng         *rand.Rand
}

// NewSimulator creates a simulator publishing into feed. rng may be nil, in
// which case a time-seeded source is used.
func NewSimulator(f *Feed, logger *slog.Logger, interval time.Duration, probability float64, rng *rand.Rand) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{feed: f, logger: logger, interval: interval, probability: probability, rng: rng}
}

var simulatorTemplates = []Notification{
	{
		Type:     TypeApprovalRequest,
		Title:    "Requisition awaiting approval",
		Message:  "A requisition has been pending approval for more than two days.",
		Priority: PriorityHigh,
	},
	{
		Type:     TypeDelivery,
		Title:    "Shipment update",
		Message:  "A tracked shipment changed its estimated arrival.",
		Priority: PriorityMedium,
	},
	{
		Type:     TypePayment,
		Title:    "Invoice due soon",
		Message:  "An approved invoice is due within five days.",
		Priority: PriorityHigh,
	},
	{
		Type:     TypeSystem,
		Title:    "Contract renewal window",
		Message:  "A contract enters its renewal window this month.",
		Priority: PriorityLow,
	},
}

// Run ticks until ctx is cancelled. Each tick rolls the probability and, on a
// hit, adds one randomly-chosen template notification.
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("feed simulator: started",
		slog.Duration("interval", s.interval),
		slog.Float64("probability", s.probability))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feed simulator: stopped")
			return
		case <-ticker.C:
			if s.rng.Float64() >= s.probability {
				continue
			}
			s.Tick()
		}
	}
}

// Tick synthesizes one notification immediately. Exported so tests can drive
// the simulator deterministically without the timer.
func (s *Simulator) Tick() Notification {
	tpl := simulatorTemplates[s.rng.Intn(len(simulatorTemplates))]
	n := s.feed.Add(tpl)
	s.logger.Debug("feed simulator: notification", slog.String("type", n.Type), slog.String("id", n.ID))
	return n
}
