package room_test

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chkobba-service/internal/service/game"
	"chkobba-service/internal/service/room"
	appErr "chkobba-service/pkg/errors"

	"github.com/sourcegraph/conc"
)

var players = []string{"conn-0", "conn-1", "conn-2", "conn-3"}

func newRoomService(t *testing.T, opts ...room.Option) *room.Service {
	t.Helper()
	return room.NewService(room.NewMemoryCodeStore(), opts...)
}

func createRoom(t *testing.T, svc *room.Service) string {
	t.Helper()
	code, err := svc.CreateRoom(context.Background(), players[0], room.Settings{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	return code
}

func seatAll(t *testing.T, svc *room.Service, code string) {
	t.Helper()
	for i, conn := range players {
		view, err := svc.JoinRoom(context.Background(), code, conn)
		if err != nil {
			t.Fatalf("join %s failed: %v", conn, err)
		}
		if view.YourSeat != i {
			t.Fatalf("expected %s in seat %d, got %d", conn, i, view.YourSeat)
		}
	}
}

func snapshot(t *testing.T, svc *room.Service, code, conn string) room.RoomView {
	t.Helper()
	view, err := svc.Snapshot(context.Background(), code, conn)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	return view
}

// playOnce plays the first card of whichever seat holds the turn.
func playOnce(t *testing.T, svc *room.Service, code string) {
	t.Helper()
	seat := snapshot(t, svc, code, "").Game.CurrentSeat
	conn := players[seat]
	hand := snapshot(t, svc, code, conn).Game.Hand
	if len(hand) == 0 {
		t.Fatalf("seat %d has no card to play", seat)
	}
	if err := svc.SubmitPlay(context.Background(), code, conn, hand[0].ID, nil); err != nil {
		t.Fatalf("play by seat %d failed: %v", seat, err)
	}
}

func cardsAccountedFor(view room.RoomView) int {
	total := view.Game.DeckCount + len(view.Game.Table)
	for _, s := range view.Seats {
		total += s.HandCount
	}
	for _, n := range view.Game.PileCounts {
		total += n
	}
	return total
}

func playRound(t *testing.T, svc *room.Service, code string) {
	t.Helper()
	for i := 0; i < 36; i++ {
		playOnce(t, svc, code)
	}
}

func TestFullRoundEndsOnThirtySixthPlay(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	view := snapshot(t, svc, code, players[0])
	if view.Phase != room.PhaseAwaitingPlay {
		t.Fatalf("expected awaiting_play after fourth seat, got %s", view.Phase)
	}
	if view.Game.DeckCount != 24 || len(view.Game.Table) != 4 || view.Game.PlaysLeft != 12 {
		t.Fatalf("unexpected first deal: %+v", view.Game)
	}
	if view.Game.Dealer != 0 || view.Game.CurrentSeat != 1 {
		t.Fatalf("expected dealer 0 and seat 1 to act, got %+v", view.Game)
	}

	for i := 1; i <= 36; i++ {
		if got := snapshot(t, svc, code, "").Phase; got != room.PhaseAwaitingPlay {
			t.Fatalf("round ended early before play %d: %s", i, got)
		}
		playOnce(t, svc, code)
		view := snapshot(t, svc, code, "")
		if n := cardsAccountedFor(view); n != game.DeckSize {
			t.Fatalf("after play %d expected 40 cards, got %d", i, n)
		}
		for _, s := range view.Seats {
			if s.HandCount > game.HandSize {
				t.Fatalf("seat %d holds %d cards", s.Seat, s.HandCount)
			}
		}
	}

	view = snapshot(t, svc, code, players[0])
	if view.Phase != room.PhaseAwaitingReplayVotes {
		t.Fatalf("expected awaiting_replay_votes, got %s", view.Phase)
	}
	if view.Game.DeckCount != 0 {
		t.Fatalf("expected empty deck, got %d", view.Game.DeckCount)
	}
	if view.LastResult == nil {
		t.Fatalf("expected round result")
	}
	if view.Scores != view.LastResult.Points {
		t.Fatalf("expected scores %v to equal round points %v", view.Scores, view.LastResult.Points)
	}
}

func TestTurnsAdvanceRoundRobin(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	prev := snapshot(t, svc, code, "").Game.CurrentSeat
	for i := 0; i < 12; i++ {
		playOnce(t, svc, code)
		cur := snapshot(t, svc, code, "").Game.CurrentSeat
		if cur != (prev+1)%game.SeatCount {
			t.Fatalf("expected seat %d after %d, got %d", (prev+1)%game.SeatCount, prev, cur)
		}
		prev = cur
	}
}

func TestSubDealRotatesDealer(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	for i := 0; i < 12; i++ {
		playOnce(t, svc, code)
	}
	view := snapshot(t, svc, code, "")
	if view.Game.Dealer != 1 || view.Game.PlaysLeft != 12 || view.Game.DeckCount != 12 {
		t.Fatalf("unexpected state after first sub-deal: %+v", view.Game)
	}
	for _, s := range view.Seats {
		if s.HandCount != game.HandSize {
			t.Fatalf("seat %d expected 3 cards, got %d", s.Seat, s.HandCount)
		}
	}
}

func TestNotYourTurnLeavesStateUntouched(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	ch, err := svc.Subscribe(code, players[2])
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-ch // snapshot

	before := snapshot(t, svc, code, "")
	other := players[(before.Game.CurrentSeat+1)%game.SeatCount]
	hand := snapshot(t, svc, code, other).Game.Hand

	err = svc.SubmitPlay(context.Background(), code, other, hand[0].ID, nil)
	if !errors.Is(err, appErr.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if after := snapshot(t, svc, code, ""); !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected play changed the room:\nbefore %+v\nafter  %+v", before, after)
	}
	select {
	case msg := <-ch:
		t.Fatalf("rejected play notified a subscriber: %+v", msg)
	default:
	}
}

func TestPlayRejections(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	code := createRoom(t, svc)

	if _, err := svc.JoinRoom(ctx, code, players[0]); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.SubmitPlay(ctx, code, players[0], "x", nil); !errors.Is(err, appErr.ErrRoomNotReady) {
		t.Fatalf("expected ErrRoomNotReady, got %v", err)
	}
	if err := svc.SubmitPlay(ctx, code, "stranger", "x", nil); !errors.Is(err, appErr.ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
	if err := svc.SubmitPlay(ctx, "NOPE1", players[0], "x", nil); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	for _, conn := range players[1:] {
		if _, err := svc.JoinRoom(ctx, code, conn); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	current := players[snapshot(t, svc, code, "").Game.CurrentSeat]
	if err := svc.SubmitPlay(ctx, code, current, "not-in-hand", nil); !errors.Is(err, appErr.ErrInvalidCard) {
		t.Fatalf("expected ErrInvalidCard, got %v", err)
	}
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	code := createRoom(t, svc)

	if _, err := svc.JoinRoom(ctx, "ZZZZZ", players[0]); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	seatAll(t, svc, code)
	if _, err := svc.JoinRoom(ctx, code, "conn-4"); !errors.Is(err, appErr.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	view, err := svc.JoinRoom(ctx, code, players[2])
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if view.YourSeat != 2 || len(view.Game.Hand) != game.HandSize {
		t.Fatalf("rejoin should return own seat and hand: %+v", view)
	}
}

func TestRoomCodeIsCaseInsensitive(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)

	lower := []rune(code)
	for i, r := range lower {
		if r >= 'A' && r <= 'Z' {
			lower[i] = r + ('a' - 'A')
		}
	}
	if _, err := svc.Get(" " + string(lower) + " "); err != nil {
		t.Fatalf("expected lookup by %q to succeed: %v", string(lower), err)
	}
}

func TestViewsHideOtherHands(t *testing.T) {
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	seen := make(map[string]bool)
	for _, conn := range players {
		view := snapshot(t, svc, code, conn)
		if len(view.Game.Hand) != game.HandSize {
			t.Fatalf("%s expected own hand of 3, got %d", conn, len(view.Game.Hand))
		}
		for _, c := range view.Game.Hand {
			if seen[c.ID] {
				t.Fatalf("card %s visible to two seats", c.ID)
			}
			seen[c.ID] = true
		}
		for _, s := range view.Seats {
			if s.HandCount != game.HandSize {
				t.Fatalf("seat %d expected hand count 3, got %d", s.Seat, s.HandCount)
			}
		}
	}

	spectator := snapshot(t, svc, code, "spectator")
	if spectator.YourSeat != -1 || len(spectator.Game.Hand) != 0 {
		t.Fatalf("unseated view should carry no hand: %+v", spectator.Game)
	}
}

func TestReplayNeedsEveryVote(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	if err := svc.SubmitReplayVote(ctx, code, players[0]); !errors.Is(err, appErr.ErrReplayNotOpen) {
		t.Fatalf("expected ErrReplayNotOpen, got %v", err)
	}

	playRound(t, svc, code)
	scores := snapshot(t, svc, code, "").Scores

	if err := svc.SubmitReplayVote(ctx, code, "stranger"); !errors.Is(err, appErr.ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
	for _, conn := range players[:3] {
		if err := svc.SubmitReplayVote(ctx, code, conn); err != nil {
			t.Fatalf("vote by %s failed: %v", conn, err)
		}
	}
	// A repeated vote counts once.
	if err := svc.SubmitReplayVote(ctx, code, players[0]); err != nil {
		t.Fatalf("repeated vote failed: %v", err)
	}

	view := snapshot(t, svc, code, players[3])
	if view.Phase != room.PhaseAwaitingReplayVotes {
		t.Fatalf("three votes must not redeal, got %s", view.Phase)
	}
	if view.Replay == nil || view.Replay.Votes != 3 || view.Replay.Total != 4 || view.Replay.Voted {
		t.Fatalf("unexpected replay view: %+v", view.Replay)
	}

	if err := svc.SubmitReplayVote(ctx, code, players[3]); err != nil {
		t.Fatalf("last vote failed: %v", err)
	}
	view = snapshot(t, svc, code, "")
	if view.Phase != room.PhaseAwaitingPlay {
		t.Fatalf("expected new round, got %s", view.Phase)
	}
	if view.Game.Round != 2 || view.Game.Dealer != 1 {
		t.Fatalf("expected round 2 dealt by seat 1, got %+v", view.Game)
	}
	if view.Scores != scores {
		t.Fatalf("cumulative scores lost: %v != %v", view.Scores, scores)
	}
	if view.Game.PileCounts != [game.TeamCount]int{} || view.Game.Chkobbas != [game.TeamCount]int{} {
		t.Fatalf("per-round state not cleared: %+v", view.Game)
	}
	if n := cardsAccountedFor(view); n != game.DeckSize {
		t.Fatalf("expected 40 cards in new round, got %d", n)
	}
}

func TestQuitRoomClosesForEveryone(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	ch, err := svc.Subscribe(code, players[3])
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := svc.QuitRoom(ctx, code, "stranger"); !errors.Is(err, appErr.ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
	if err := svc.QuitRoom(ctx, code, players[1]); err != nil {
		t.Fatalf("quit failed: %v", err)
	}

	var last room.OutgoingMessage
	for msg := range ch {
		last = msg
	}
	if last.Type != room.MessageRoomClosed {
		t.Fatalf("expected room_closed before channel close, got %+v", last)
	}

	if err := svc.SubmitPlay(ctx, code, players[0], "x", nil); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, code, players[0]); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSubscribersReceiveOrderedEvents(t *testing.T) {
	svc := newRoomService(t, room.WithConfig(room.Config{SubscriberBuffer: 64}))
	code := createRoom(t, svc)

	ch, err := svc.Subscribe(code, players[0])
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	seatAll(t, svc, code)
	playOnce(t, svc, code)

	var types []string
	var seq int64
	for len(types) < 6 {
		msg := <-ch
		if msg.Seq <= seq {
			t.Fatalf("sequence went backwards: %d after %d", msg.Seq, seq)
		}
		seq = msg.Seq
		types = append(types, msg.Type)
	}
	want := []string{
		room.MessageRoomSnapshot, // subscribe
		room.MessageRoomSnapshot, // seat 0
		room.MessageRoomSnapshot, // seat 1
		room.MessageRoomSnapshot, // seat 2
		room.MessageRoundStarted,
		room.MessageStateUpdated,
	}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("unexpected event order: %v", types)
	}
}

func TestCreateRoomRejectsSettings(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)

	cases := []room.Settings{
		{Mode: "solo"},
		{PlayerCount: 2},
		{TurnSeconds: -1},
	}
	for _, settings := range cases {
		if _, err := svc.CreateRoom(ctx, players[0], settings); !errors.Is(err, appErr.ErrInvalidSettings) {
			t.Fatalf("settings %+v: expected ErrInvalidSettings, got %v", settings, err)
		}
	}

	code, err := svc.CreateRoom(ctx, players[0], room.Settings{Mode: " Teams ", TurnSeconds: 20})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	view := snapshot(t, svc, code, players[0])
	if view.Settings.Mode != room.ModeTeams || view.Settings.PlayerCount != 4 || !view.IsHost {
		t.Fatalf("unexpected settings view: %+v", view)
	}
}

type takenCodes struct{}

func (takenCodes) Reserve(ctx context.Context, code string) (bool, error) { return false, nil }
func (takenCodes) Touch(ctx context.Context, code string) error           { return nil }
func (takenCodes) Release(ctx context.Context, code string) error         { return nil }

func TestCreateRoomCodeExhausted(t *testing.T) {
	svc := room.NewService(takenCodes{})
	if _, err := svc.CreateRoom(context.Background(), players[0], room.Settings{}); !errors.Is(err, appErr.ErrCodeExhausted) {
		t.Fatalf("expected ErrCodeExhausted, got %v", err)
	}
}

func TestMemoryCodeStore(t *testing.T) {
	ctx := context.Background()
	store := room.NewMemoryCodeStore()

	ok, _ := store.Reserve(ctx, "ABCDE")
	if !ok {
		t.Fatalf("first reservation should succeed")
	}
	if ok, _ := store.Reserve(ctx, "ABCDE"); ok {
		t.Fatalf("second reservation should fail")
	}
	if err := store.Release(ctx, "ABCDE"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if ok, _ := store.Reserve(ctx, "ABCDE"); !ok {
		t.Fatalf("released code should be reservable")
	}
}

type recorderFunc func(rec room.RoundRecord)

func (f recorderFunc) RecordRound(ctx context.Context, rec room.RoundRecord) error {
	f(rec)
	return nil
}

func TestRoundIsRecorded(t *testing.T) {
	records := make(chan room.RoundRecord, 1)
	svc := newRoomService(t, room.WithRecorder(recorderFunc(func(rec room.RoundRecord) {
		records <- rec
	})))
	code := createRoom(t, svc)
	seatAll(t, svc, code)
	playRound(t, svc, code)

	select {
	case rec := <-records:
		if rec.RoomCode != code || rec.Round != 1 {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.Seats[0] != players[0] || rec.Seats[3] != players[3] {
			t.Fatalf("unexpected seats: %v", rec.Seats)
		}
		if rec.Scores != rec.Result.Points {
			t.Fatalf("first round scores should equal its points: %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("round was not recorded")
	}
}

type turnLog struct {
	mu      sync.Mutex
	turns   []int64
	seats   []int
	stopped int
}

func (l *turnLog) TurnStarted(code string, turn int64, seat int, timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	l.seats = append(l.seats, seat)
}

func (l *turnLog) TurnsStopped(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped++
}

func (l *turnLog) last() (int64, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.turns[len(l.turns)-1], l.seats[len(l.seats)-1]
}

func TestAutoPlayUsesCurrentTurn(t *testing.T) {
	ctx := context.Background()
	obs := &turnLog{}
	svc := newRoomService(t)
	svc.SetTurnObserver(obs)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	turn, seat := obs.last()
	if seat != 1 {
		t.Fatalf("expected first turn for seat 1, got %d", seat)
	}
	first := snapshot(t, svc, code, players[seat]).Game.Hand[0]

	if err := svc.AutoPlay(ctx, code, turn); err != nil {
		t.Fatalf("auto play failed: %v", err)
	}
	view := snapshot(t, svc, code, players[seat])
	if view.Game.LastPlay == nil || view.Game.LastPlay.Card.ID != first.ID {
		t.Fatalf("expected auto play of %s, got %+v", first.ID, view.Game.LastPlay)
	}

	// A stale turn does nothing.
	if err := svc.AutoPlay(ctx, code, turn); err != nil {
		t.Fatalf("stale auto play failed: %v", err)
	}
	if got := snapshot(t, svc, code, "").Game.PlaysLeft; got != 11 {
		t.Fatalf("stale auto play changed the room, plays left %d", got)
	}

	if err := svc.QuitRoom(ctx, code, players[0]); err != nil {
		t.Fatalf("quit failed: %v", err)
	}
	obs.mu.Lock()
	stopped := obs.stopped
	obs.mu.Unlock()
	if stopped == 0 {
		t.Fatalf("closing the room should stop its turns")
	}
}

func TestConcurrentPlaysKeepInvariants(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	code := createRoom(t, svc)
	seatAll(t, svc, code)

	var played atomic.Int64
	var wg conc.WaitGroup
	for seat, conn := range players {
		seat, conn := seat, conn
		wg.Go(func() {
			for {
				view, err := svc.Snapshot(ctx, code, conn)
				if err != nil || view.Phase != room.PhaseAwaitingPlay {
					return
				}
				if len(view.Game.Hand) == 0 {
					runtime.Gosched()
					continue
				}
				err = svc.SubmitPlay(ctx, code, conn, view.Game.Hand[0].ID, nil)
				switch {
				case err == nil:
					played.Add(1)
				case errors.Is(err, appErr.ErrNotYourTurn):
					runtime.Gosched()
				case errors.Is(err, appErr.ErrRoomNotReady):
					return
				default:
					t.Errorf("seat %d: unexpected error %v", seat, err)
					return
				}
			}
		})
	}
	wg.Wait()

	if played.Load() != 36 {
		t.Fatalf("expected 36 accepted plays, got %d", played.Load())
	}
	view := snapshot(t, svc, code, "")
	if view.Phase != room.PhaseAwaitingReplayVotes {
		t.Fatalf("expected round to finish, got %s", view.Phase)
	}
	if n := cardsAccountedFor(view); n != game.DeckSize {
		t.Fatalf("expected 40 cards, got %d", n)
	}
}

func TestReapIdle(t *testing.T) {
	ctx := context.Background()
	svc := newRoomService(t)
	idle := createRoom(t, svc)
	watched := createRoom(t, svc)

	ch, err := svc.Subscribe(watched, players[1])
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer svc.Unsubscribe(watched, players[1], ch)

	time.Sleep(5 * time.Millisecond)
	if n := svc.ReapIdle(ctx, time.Millisecond); n != 1 {
		t.Fatalf("expected one reaped room, got %d", n)
	}
	if _, err := svc.Get(idle); !errors.Is(err, appErr.ErrRoomNotFound) {
		t.Fatalf("idle room should be gone, got %v", err)
	}
	if _, err := svc.Get(watched); err != nil {
		t.Fatalf("watched room should survive: %v", err)
	}
}
