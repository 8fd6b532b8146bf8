package ticket

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"ticket-bot/events"
)

func newTestReconciler(t *testing.T) (*Reconciler, *memStore, *memProvider) {
	t.Helper()
	st := newMemStore()
	pv := newMemProvider()
	rec := NewReconciler(st, pv, events.Nop{}, zap.NewNop().Sugar(), "pcrp")
	return rec, st, pv
}

func seedTicket(t *testing.T, st *memStore, id, channelID, userID string, status Status) {
	t.Helper()
	err := st.Insert(Ticket{
		ID: id, ChannelID: channelID, UserID: userID,
		Category: CategoryReport, Status: StatusOpen, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if status == StatusClosed {
		if ok, _ := st.CloseTicket(channelID); !ok {
			t.Fatalf("seed close %s", id)
		}
	}
}

func TestReconcileReconnects(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusOpen)
	pv.addChannel("ch1", "pcrp-alice-report-aaaa1111", ChannelTopic("alice#0", "100", CategoryReport))

	res, err := rec.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reconnected != 1 || res.Closed != 0 || res.Created != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestReconcileClosesOrphanRow(t *testing.T) {
	rec, st, _ := newTestReconciler(t)
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusOpen)

	res, err := rec.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Closed != 1 {
		t.Errorf("Closed = %d, want 1", res.Closed)
	}
	if st.ticket("pcrp-alice-report-aaaa1111").Status != StatusClosed {
		t.Error("orphan row not closed")
	}
}

func TestReconcileClosesRenamedAway(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusOpen)
	pv.addChannel("ch1", "general-chat", "")

	res, _ := rec.Run()
	if res.Closed != 1 {
		t.Errorf("Closed = %d, want 1", res.Closed)
	}
	if st.ticket("pcrp-alice-report-aaaa1111").Status != StatusClosed {
		t.Error("row for renamed-away channel not closed")
	}
}

func TestReconcileReopensSurvivingChannel(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusClosed)
	pv.addChannel("ch1", "pcrp-alice-report-aaaa1111", ChannelTopic("alice#0", "100", CategoryReport))

	res, _ := rec.Run()
	if res.Reopened != 1 {
		t.Errorf("Reopened = %d, want 1", res.Reopened)
	}
	row := st.ticket("pcrp-alice-report-aaaa1111")
	if row.Status != StatusOpen {
		t.Error("row not reopened")
	}
	if row.ClaimedBy != "" {
		t.Error("reopen kept the stale claim")
	}
}

func TestReconcileRepointsRecreatedChannel(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	// The ticket-named channel was deleted and re-created: the row still
	// points at the dead id, the live channel's name matches the row id.
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch-dead", "100", StatusOpen)
	pv.addChannel("ch2", "pcrp-alice-report-aaaa1111", ChannelTopic("alice#0", "100", CategoryReport))

	res, _ := rec.Run()
	if res.Repointed != 1 {
		t.Errorf("Repointed = %d, want 1 (res = %+v)", res.Repointed, res)
	}
	row := st.ticket("pcrp-alice-report-aaaa1111")
	if row.ChannelID != "ch2" {
		t.Errorf("channel = %q, want ch2", row.ChannelID)
	}
	if row.Status != StatusOpen {
		t.Error("repointed row not open")
	}
	if res.Created != 0 {
		t.Error("repoint also synthesized a duplicate row")
	}
}

func TestReconcileChannelMatchBeatsNameMatch(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	// The live channel matches one closed row by channel id and a
	// different row by name. The channel-id match must win.
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusClosed)
	seedTicket(t, st, "pcrp-bob-report-bbbb2222", "ch-other", "200", StatusOpen)
	pv.addChannel("ch1", "pcrp-bob-report-bbbb2222", ChannelTopic("alice#0", "100", CategoryReport))

	if _, err := rec.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.ticket("pcrp-alice-report-aaaa1111").Status != StatusOpen {
		t.Error("channel-id match not reopened")
	}
	if st.ticket("pcrp-bob-report-bbbb2222").ChannelID != "ch-other" {
		t.Error("name match stole the channel from the channel-id match")
	}
}

func TestReconcileClosesDuplicateOpenRows(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	// Two open rows drifted onto one live channel (manual edits). The
	// row named after the channel survives, the other gets closed.
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch1", "100", StatusOpen)
	seedTicket(t, st, "pcrp-bob-report-bbbb2222", "ch1", "200", StatusOpen)
	pv.addChannel("ch1", "pcrp-alice-report-aaaa1111", ChannelTopic("alice#0", "100", CategoryReport))

	res, err := rec.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Closed != 1 || res.Reconnected != 1 {
		t.Errorf("res = %+v, want one closed and one reconnected", res)
	}
	if st.ticket("pcrp-alice-report-aaaa1111").Status != StatusOpen {
		t.Error("name-matching row was closed")
	}
	if st.ticket("pcrp-bob-report-bbbb2222").Status != StatusClosed {
		t.Error("duplicate row survived open")
	}

	open, _ := st.ListOpen()
	if len(open) != 1 {
		t.Fatalf("open rows for ch1 = %d, want 1", len(open))
	}

	second, _ := rec.Run()
	if second.Closed != 0 || second.Reconnected != 1 {
		t.Errorf("second sweep = %+v, want stable state", second)
	}
}

func TestPickKeeper(t *testing.T) {
	old := time.Now().UTC()
	rows := []Ticket{
		{ID: "b", ChannelID: "ch1", CreatedAt: old.Add(time.Second)},
		{ID: "a", ChannelID: "ch1", CreatedAt: old.Add(2 * time.Second)},
		{ID: "c", ChannelID: "ch1", CreatedAt: old},
	}
	// Name match beats age.
	if got := pickKeeper(rows, "a"); got.ID != "a" {
		t.Errorf("keeper = %q, want name match a", got.ID)
	}
	// Without a name match the oldest wins.
	if got := pickKeeper(rows, "pcrp-other"); got.ID != "c" {
		t.Errorf("keeper = %q, want oldest c", got.ID)
	}
}

func TestReconcileSynthesizesFromTopic(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	pv.addChannel("ch1", "pcrp-alice-report-aaaa1111", ChannelTopic("alice#0", "100", CategoryReport))

	res, _ := rec.Run()
	if res.Created != 1 {
		t.Errorf("Created = %d, want 1", res.Created)
	}
	row := st.ticket("pcrp-alice-report-aaaa1111")
	if row == nil {
		t.Fatal("row not synthesized")
	}
	if row.UserID != "100" || row.Category != CategoryReport || row.Status != StatusOpen {
		t.Errorf("synthesized row = %+v", row)
	}
	if row.ChannelID != "ch1" {
		t.Errorf("channel = %q", row.ChannelID)
	}
}

func TestReconcileNeverFabricatesRequester(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	pv.addChannel("ch1", "pcrp-alice-report-aaaa1111", "no structure here")

	res, _ := rec.Run()
	if res.Unmanaged != 1 || res.Created != 0 {
		t.Errorf("res = %+v, want one unmanaged and nothing created", res)
	}
	if rows, _ := st.ListOpen(); len(rows) != 0 {
		t.Error("row fabricated for unrecoverable channel")
	}
}

func TestReconcileIgnoresNonTicketChannels(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	pv.addChannel("ch1", "general", "")
	pv.addChannel("ch2", "announcements", ChannelTopic("x#0", "1", CategoryReport))

	res, _ := rec.Run()
	if res.Created != 0 || res.Unmanaged != 0 {
		t.Errorf("res = %+v, want nothing touched", res)
	}
	if rows, _ := st.ListOpen(); len(rows) != 0 {
		t.Error("non-ticket channel adopted")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	rec, st, pv := newTestReconciler(t)
	seedTicket(t, st, "pcrp-alice-report-aaaa1111", "ch-dead", "100", StatusOpen)
	seedTicket(t, st, "pcrp-bob-billing-bbbb2222", "ch2", "200", StatusClosed)
	pv.addChannel("ch2", "pcrp-bob-billing-bbbb2222", ChannelTopic("bob#0", "200", CategoryBilling))
	pv.addChannel("ch3", "pcrp-carol-report-cccc3333", ChannelTopic("carol#0", "300", CategoryReport))

	first, err := rec.Run()
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Closed != 1 || first.Reopened != 1 || first.Created != 1 {
		t.Errorf("first = %+v", first)
	}

	second, err := rec.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Closed != 0 || second.Reopened != 0 || second.Created != 0 || second.Repointed != 0 {
		t.Errorf("second sweep mutated state: %+v", second)
	}
	if second.Reconnected != 2 {
		t.Errorf("second Reconnected = %d, want 2", second.Reconnected)
	}
}

func TestHealIfStaleThrottles(t *testing.T) {
	rec, _, _ := newTestReconciler(t)

	if _, ran := rec.HealIfStale(); !ran {
		t.Fatal("first heal did not run")
	}
	if _, ran := rec.HealIfStale(); ran {
		t.Error("second heal ran inside the throttle window")
	}
}
