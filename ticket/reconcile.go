package ticket

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ticket-bot/events"
)

// healGap throttles lazy lookup-miss sweeps so a burst of interactions in
// a drifted channel triggers at most one sweep.
const healGap = 10 * time.Second

// Result counts what one reconciliation sweep did.
type Result struct {
	Reconnected int // open rows whose channel is alive and ticket-named
	Closed      int // open rows closed (channel gone or renamed away)
	Reopened    int // closed rows reopened (channel still alive)
	Repointed   int // rows repointed to a re-created channel
	Created     int // rows synthesized from an unmatched ticket channel
	Unmanaged   int // ticket-named channels left alone (topic unrecoverable)
	Failed      int // per-item repairs that errored
}

// Reconciler restores the 1:1 correspondence between open ticket rows and
// live ticket-named channels. It runs at startup, on a fixed interval,
// and lazily when a lookup by channel misses.
//
// Matching by channel id takes priority over matching by name-as-id, so a
// live channel is never attributed to the wrong historical row when both
// a stale channel id and a stale name match different rows.
type Reconciler struct {
	store    Store
	provider Provider
	pub      events.Publisher
	log      *zap.SugaredLogger
	prefix   string

	mu      sync.Mutex
	lastRun time.Time
}

func NewReconciler(store Store, provider Provider, pub events.Publisher, log *zap.SugaredLogger, prefix string) *Reconciler {
	return &Reconciler{store: store, provider: provider, pub: pub, log: log, prefix: prefix}
}

// Run performs one full sweep. Per-item repair failures are isolated:
// a failing row is defensively closed and logged, and the sweep carries
// on with the remaining items.
func (r *Reconciler) Run() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runLocked()
}

// HealIfStale runs a sweep unless one finished recently. Reports whether
// a sweep actually ran. A lookup miss inside the throttle window is
// surfaced as not-found without repair; a freshly finished sweep would
// not have missed the drift, so re-running for every miss would only let
// a burst of interactions in a dead channel hammer the channel host.
func (r *Reconciler) HealIfStale() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastRun) < healGap {
		return Result{}, false
	}
	res, err := r.runLocked()
	if err != nil {
		return res, false
	}
	return res, true
}

func (r *Reconciler) runLocked() (Result, error) {
	var res Result

	open, err := r.store.ListOpen()
	if err != nil {
		return res, fmt.Errorf("list open tickets: %w", err)
	}
	channels, err := r.provider.ListChannels()
	if err != nil {
		return res, fmt.Errorf("list channels: %w", err)
	}

	live := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		live[ch.ID] = ch
	}

	// Open rows against live channels: close anything whose channel is
	// gone or no longer looks like a ticket. Survivors are grouped by
	// channel so duplicate open rows for one channel can be repaired.
	byChannel := make(map[string][]Ticket, len(open))
	for _, t := range open {
		ch, alive := live[t.ChannelID]
		switch {
		case !alive:
			r.closeRow(&res, t, "channel deleted out-of-band")
		case !IsTicketChannel(r.prefix, ch.Name):
			r.closeRow(&res, t, "channel renamed away from ticket format")
		default:
			byChannel[t.ChannelID] = append(byChannel[t.ChannelID], t)
		}
	}

	// At most one open row may back a channel; surplus rows get closed.
	openByChannel := make(map[string]bool, len(byChannel))
	for channelID, rows := range byChannel {
		keep := pickKeeper(rows, live[channelID].Name)
		for _, t := range rows {
			if t.ID != keep.ID {
				r.closeRow(&res, t, "duplicate open row for channel")
			}
		}
		openByChannel[channelID] = true
		res.Reconnected++
	}

	// Live ticket-named channels with no matching open row: reopen,
	// repoint, or synthesize.
	for _, ch := range channels {
		if !IsTicketChannel(r.prefix, ch.Name) || openByChannel[ch.ID] {
			continue
		}
		if err := r.adoptChannel(&res, ch); err != nil {
			res.Failed++
			r.log.Errorw("adopt ticket channel", "channel", ch.ID, "name", ch.Name, "error", err)
		}
	}

	r.lastRun = time.Now()
	r.log.Infow("reconciliation complete",
		"reconnected", res.Reconnected, "closed", res.Closed, "reopened", res.Reopened,
		"repointed", res.Repointed, "created", res.Created, "unmanaged", res.Unmanaged,
		"failed", res.Failed)

	if r.pub != nil {
		if err := r.pub.Publish(events.KindReconciled, res); err != nil {
			r.log.Warnw("publish reconcile event", "error", err)
		}
	}
	return res, nil
}

// pickKeeper chooses which of several open rows for one channel stays
// open: a row whose id matches the channel name wins, then the oldest,
// then the smaller id for determinism.
func pickKeeper(rows []Ticket, channelName string) Ticket {
	keep := rows[0]
	for _, t := range rows[1:] {
		switch {
		case t.ID == channelName && keep.ID != channelName:
			keep = t
		case keep.ID == channelName && t.ID != channelName:
		case t.CreatedAt.Before(keep.CreatedAt):
			keep = t
		case t.CreatedAt.Equal(keep.CreatedAt) && t.ID < keep.ID:
			keep = t
		}
	}
	return keep
}

func (r *Reconciler) closeRow(res *Result, t Ticket, reason string) {
	ok, err := r.store.CloseTicketByID(t.ID)
	if err != nil {
		res.Failed++
		r.log.Errorw("close drifted ticket", "ticket", t.ID, "reason", reason, "error", err)
		return
	}
	if ok {
		res.Closed++
		r.log.Infow("closed drifted ticket", "ticket", t.ID, "reason", reason)
	}
}

// adoptChannel repairs one live ticket-named channel that has no open
// row. Channel-id matches win over name-as-id matches; synthesis is the
// last resort and never fabricates a requester.
func (r *Reconciler) adoptChannel(res *Result, ch Channel) error {
	prior, err := r.store.GetAnyByChannel(ch.ID)
	if err != nil {
		return fmt.Errorf("lookup by channel: %w", err)
	}
	if prior != nil && prior.Status == StatusClosed {
		// A close that did not fully take effect: the channel outlived it.
		ok, err := r.store.ReopenTicket(ch.ID)
		if err != nil {
			return fmt.Errorf("reopen: %w", err)
		}
		if ok {
			res.Reopened++
			r.log.Infow("reopened ticket with surviving channel", "ticket", prior.ID, "channel", ch.ID)
		}
		return nil
	}

	byName, err := r.store.GetByID(ch.Name)
	if err != nil {
		return fmt.Errorf("lookup by name: %w", err)
	}
	if byName != nil && byName.ChannelID != ch.ID {
		// Channel was re-created with the same name; repoint the row.
		if _, err := r.store.RepointChannel(byName.ID, ch.ID); err != nil {
			return fmt.Errorf("repoint: %w", err)
		}
		if byName.Status == StatusClosed {
			if _, err := r.store.ReopenTicket(ch.ID); err != nil {
				return fmt.Errorf("reopen after repoint: %w", err)
			}
		}
		res.Repointed++
		r.log.Infow("repointed ticket to re-created channel", "ticket", byName.ID, "channel", ch.ID)
		return nil
	}

	_, userID, cat, parsed := ParseTopic(ch.Topic)
	if !parsed {
		// Never fabricate a requester; leave the channel unmanaged.
		res.Unmanaged++
		r.log.Warnw("ticket channel left unmanaged, requester unrecoverable",
			"channel", ch.ID, "name", ch.Name)
		return nil
	}

	t := Ticket{
		ID:        ch.Name,
		ChannelID: ch.ID,
		UserID:    userID,
		Category:  cat,
		Status:    StatusOpen,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Insert(t); err != nil {
		return fmt.Errorf("synthesize row: %w", err)
	}
	res.Created++
	r.log.Infow("synthesized ticket row from channel", "ticket", t.ID, "channel", ch.ID, "user", userID)
	return nil
}

// Start launches the interval sweep. The returned stop function is safe
// to call once.
func (r *Reconciler) Start(every time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Run(); err != nil {
					r.log.Errorw("interval reconciliation", "error", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
