package room

import (
	"context"
	"sync"
	"time"

	"chkobba-service/internal/service/game"
	"chkobba-service/internal/service/profile"
	appErr "chkobba-service/pkg/errors"
	"chkobba-service/pkg/logger"

	"go.uber.org/zap"
)

// ProfileLookup resolves display identities without blocking.
type ProfileLookup interface {
	Lookup(connectionID string) profile.Profile
}

// RoundRecorder receives scored rounds. It runs outside the room lock.
type RoundRecorder interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
}

// TurnObserver is told when a seat is expected to play and when no turn is
// pending any more. Implementations must not call back into the room
// synchronously.
type TurnObserver interface {
	TurnStarted(code string, turn int64, seat int, timeout time.Duration)
	TurnsStopped(code string)
}

type roomDeps struct {
	profiles  ProfileLookup
	recorder  RoundRecorder
	observer  TurnObserver
	shuffler  game.Shuffler
	turnOrder game.TurnOrder
	bufSize   int
}

// Room serialises every mutation of one room behind mu.
type Room struct {
	code     string
	host     string
	settings Settings
	deps     roomDeps
	resolver *game.Resolver

	mu          sync.Mutex
	state       roomState
	seats       [game.SeatCount]string
	seatByConn  map[string]int
	scores      [game.TeamCount]int
	round       int
	nextDealer  int
	turn        int64
	lastPlay    *PlayView
	lastResult  *game.RoundResult
	seq         int64
	lastActive  time.Time
	subscribers map[string]chan OutgoingMessage
}

func newRoom(code, host string, settings Settings, deps roomDeps) *Room {
	if deps.bufSize <= 0 {
		deps.bufSize = 16
	}
	return &Room{
		code:        code,
		host:        host,
		settings:    settings,
		deps:        deps,
		resolver:    game.NewResolver(deps.turnOrder),
		state:       awaitingSeats{},
		seatByConn:  make(map[string]int),
		lastActive:  time.Now(),
		subscribers: make(map[string]chan OutgoingMessage),
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.phase()
}

// Subscribe registers the outbound channel of a connection and pushes a
// snapshot to it. A second subscription for the same connection replaces
// the first one.
func (r *Room) Subscribe(connectionID string) (<-chan OutgoingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return nil, appErr.ErrRoomNotFound
	}
	if old, ok := r.subscribers[connectionID]; ok {
		close(old)
	}
	ch := make(chan OutgoingMessage, r.deps.bufSize)
	r.subscribers[connectionID] = ch
	r.lastActive = time.Now()
	r.pushLocked(connectionID, MessageRoomSnapshot, r.exportLocked(connectionID))
	return ch, nil
}

// Unsubscribe drops ch if it is still the connection's current channel.
func (r *Room) Unsubscribe(connectionID string, ch <-chan OutgoingMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.subscribers[connectionID]
	if !ok || (ch != nil && (<-chan OutgoingMessage)(cur) != ch) {
		return
	}
	delete(r.subscribers, connectionID)
	close(cur)
	r.lastActive = time.Now()
}

func (r *Room) Snapshot(connectionID string) (RoomView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return RoomView{}, appErr.ErrRoomNotFound
	}
	return r.exportLocked(connectionID), nil
}

// Refresh re-sends every subscriber its view, e.g. after a profile change.
func (r *Room) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.(closed); ok {
		return
	}
	r.broadcastLocked(MessageRoomSnapshot)
}

// Join seats a connection in the lowest free seat. Filling the last seat
// deals the first round. Joining again returns the current view.
func (r *Room) Join(connectionID string) (RoomView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return RoomView{}, appErr.ErrRoomNotFound
	}
	r.lastActive = time.Now()
	if _, ok := r.seatByConn[connectionID]; ok {
		return r.exportLocked(connectionID), nil
	}
	if _, ok := r.state.(awaitingSeats); !ok {
		return RoomView{}, appErr.ErrRoomFull
	}
	seat := r.freeSeatLocked()
	if seat < 0 {
		return RoomView{}, appErr.ErrRoomFull
	}

	r.seats[seat] = connectionID
	r.seatByConn[connectionID] = seat
	logger.Log.Info("seat taken",
		zap.String("room", r.code),
		zap.String("connectionID", connectionID),
		zap.Int("seat", seat),
	)

	if r.freeSeatLocked() < 0 {
		r.startRoundLocked()
	} else {
		r.broadcastLocked(MessageRoomSnapshot)
	}
	return r.exportLocked(connectionID), nil
}

// Play validates and applies one play for the connection's seat. Rejected
// plays leave the room untouched and notify nobody.
func (r *Room) Play(connectionID, cardID string, combination []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, st, err := r.playableLocked(connectionID)
	if err != nil {
		return err
	}
	gs := st.game
	if gs.CurrentSeat != seat {
		return appErr.ErrNotYourTurn
	}

	out, err := r.resolver.Resolve(gs, game.Play{Seat: seat, CardID: cardID, Combination: combination})
	if err != nil {
		return err
	}

	// The dealer's closing card of a sub-deal never scores a chkobba.
	suppress := out.Chkobba && seat == gs.Dealer && gs.PlaysLeft == 1
	gs.Apply(out, suppress)
	r.turn++
	r.lastActive = time.Now()
	r.lastPlay = &PlayView{
		Seat:     seat,
		Card:     out.Played,
		Captured: out.Captured,
		Chkobba:  out.Chkobba && !suppress,
	}
	r.checkCardsLocked(gs)

	logger.Log.Debug("card played",
		zap.String("room", r.code),
		zap.Int("seat", seat),
		zap.String("card", out.Played.String()),
		zap.Int("captured", len(out.Captured)),
		zap.Bool("chkobba", r.lastPlay.Chkobba),
		zap.Bool("chkobbaSuppressed", suppress),
	)

	if gs.PlaysLeft > 0 {
		r.broadcastLocked(MessageStateUpdated)
		r.announceTurnLocked(gs)
		return nil
	}
	if gs.CanDealAgain() {
		gs.DealSubRound()
		r.broadcastLocked(MessageStateUpdated)
		r.announceTurnLocked(gs)
		return nil
	}
	r.endRoundLocked(st)
	return nil
}

// VoteReplay records a seat's vote. The last missing vote deals a new round
// with the cumulative scores kept. Voting twice is a no-op.
func (r *Room) VoteReplay(connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return appErr.ErrRoomNotFound
	}
	seat, ok := r.seatByConn[connectionID]
	if !ok {
		return appErr.ErrNotSeated
	}
	st, ok := r.state.(*awaitingReplayVotes)
	if !ok {
		return appErr.ErrReplayNotOpen
	}
	if st.votes[seat] {
		return nil
	}
	st.votes[seat] = true
	r.lastActive = time.Now()

	total := r.seatedCountLocked()
	r.broadcastPayloadLocked(MessageReplayStatus, ReplayStatusPayload{Votes: len(st.votes), Total: total})
	if len(st.votes) >= total {
		r.startRoundLocked()
	}
	return nil
}

// Close tears the room down on behalf of a seated connection.
func (r *Room) Close(connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return appErr.ErrRoomNotFound
	}
	if _, ok := r.seatByConn[connectionID]; !ok && connectionID != r.host {
		return appErr.ErrNotSeated
	}
	r.closeLocked(connectionID)
	return nil
}

func (r *Room) closeLocked(by string) {
	r.state = mustTransition(r.state, closed{})
	r.broadcastPayloadLocked(MessageRoomClosed, RoomClosedPayload{Code: r.code, By: by})
	for conn, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, conn)
	}
	if r.deps.observer != nil {
		r.deps.observer.TurnsStopped(r.code)
	}
	logger.Log.Info("room closed", zap.String("room", r.code), zap.String("by", by))
}

// autoPlayCard returns the move a turn clock makes when turn expires: the
// first card of the current seat. ok is false once the turn has moved on.
func (r *Room) autoPlayCard(turn int64) (connectionID, cardID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, isPlay := r.state.(*awaitingPlay)
	if !isPlay || r.turn != turn {
		return "", "", false
	}
	hand := st.game.Hands[st.game.CurrentSeat]
	if len(hand) == 0 {
		return "", "", false
	}
	return r.seats[st.game.CurrentSeat], hand[0].ID, true
}

// closeIfIdle closes the room when nobody is connected and nothing happened
// since cutoff.
func (r *Room) closeIfIdle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.(closed); ok {
		return true
	}
	if len(r.subscribers) > 0 || !r.lastActive.Before(cutoff) {
		return false
	}
	r.closeLocked("")
	return true
}

func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.(closed); !ok {
		r.closeLocked("")
	}
}

func (r *Room) playableLocked(connectionID string) (int, *awaitingPlay, error) {
	if _, ok := r.state.(closed); ok {
		return 0, nil, appErr.ErrRoomNotFound
	}
	seat, ok := r.seatByConn[connectionID]
	if !ok {
		return 0, nil, appErr.ErrNotSeated
	}
	st, ok := r.state.(*awaitingPlay)
	if !ok {
		return 0, nil, appErr.ErrRoomNotReady
	}
	return seat, st, nil
}

func (r *Room) startRoundLocked() {
	r.state = mustTransition(r.state, dealing{})

	deck := game.Shuffle(game.Build(), r.deps.shuffler)
	r.round++
	gs := game.NewRound(deck, r.round, r.nextDealer, r.scores)
	r.nextDealer = (r.nextDealer + 1) % game.SeatCount
	r.turn++
	r.lastPlay = nil

	r.state = mustTransition(r.state, &awaitingPlay{game: gs})
	logger.Log.Info("round started",
		zap.String("room", r.code),
		zap.Int("round", r.round),
		zap.Int("dealer", gs.Dealer),
	)
	r.broadcastLocked(MessageRoundStarted)
	r.announceTurnLocked(gs)
}

func (r *Room) endRoundLocked(st *awaitingPlay) {
	gs := st.game
	r.state = mustTransition(r.state, &roundEnding{game: gs})
	if r.deps.observer != nil {
		r.deps.observer.TurnsStopped(r.code)
	}

	sweptTo := gs.LastCapture
	swept := gs.SweepTable()
	result := game.ScoreRound(gs.Piles, gs.Chkobbas)
	for team := range r.scores {
		r.scores[team] += result.Points[team]
	}
	gs.Scores = r.scores
	r.lastResult = &result

	r.state = mustTransition(r.state, &awaitingReplayVotes{
		game:   gs,
		result: result,
		votes:  make(map[int]bool, game.SeatCount),
	})

	logger.Log.Info("round ended",
		zap.String("room", r.code),
		zap.Int("round", gs.Round),
		zap.Ints("points", result.Points[:]),
		zap.Ints("scores", r.scores[:]),
	)
	r.broadcastLocked(MessageStateUpdated)
	r.broadcastPayloadLocked(MessageRoundEnded, RoundEndedPayload{
		Round:     gs.Round,
		Points:    result.Points,
		Breakdown: result.Breakdown,
		Scores:    r.scores,
		Swept:     swept,
		SweptTo:   sweptTo.String(),
	})

	if r.deps.recorder != nil {
		rec := RoundRecord{
			RoomCode: r.code,
			Round:    gs.Round,
			Seats:    r.seats,
			Result:   result,
			Scores:   r.scores,
			EndedAt:  time.Now(),
		}
		go func() {
			if err := r.deps.recorder.RecordRound(context.Background(), rec); err != nil {
				logger.Log.Warn("round record failed", zap.String("room", rec.RoomCode), zap.Error(err))
			}
		}()
	}
}

func (r *Room) announceTurnLocked(gs *game.GameState) {
	if r.deps.observer == nil {
		return
	}
	r.deps.observer.TurnStarted(r.code, r.turn, gs.CurrentSeat, time.Duration(r.settings.TurnSeconds)*time.Second)
}

func (r *Room) checkCardsLocked(gs *game.GameState) {
	if n := gs.CardCount(); n != game.DeckSize {
		logger.Log.DPanic("card count invariant broken", zap.String("room", r.code), zap.Int("cards", n))
	}
}

func (r *Room) freeSeatLocked() int {
	for i, conn := range r.seats {
		if conn == "" {
			return i
		}
	}
	return -1
}

func (r *Room) seatedCountLocked() int {
	return len(r.seatByConn)
}

// broadcastLocked sends every subscriber its own view.
func (r *Room) broadcastLocked(msgType string) {
	seq := r.nextSeqLocked()
	for conn, ch := range r.subscribers {
		r.sendLocked(conn, ch, OutgoingMessage{Type: msgType, Seq: seq, Data: r.exportLocked(conn)})
	}
}

func (r *Room) broadcastPayloadLocked(msgType string, payload interface{}) {
	msg := OutgoingMessage{Type: msgType, Seq: r.nextSeqLocked(), Data: payload}
	for conn, ch := range r.subscribers {
		r.sendLocked(conn, ch, msg)
	}
}

func (r *Room) pushLocked(connectionID, msgType string, payload interface{}) {
	if ch, ok := r.subscribers[connectionID]; ok {
		r.sendLocked(connectionID, ch, OutgoingMessage{Type: msgType, Seq: r.nextSeqLocked(), Data: payload})
	}
}

func (r *Room) sendLocked(connectionID string, ch chan OutgoingMessage, msg OutgoingMessage) {
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("ws subscriber channel full",
			zap.String("room", r.code),
			zap.String("connectionID", connectionID),
			zap.String("type", msg.Type),
		)
	}
}

func (r *Room) nextSeqLocked() int64 {
	r.seq++
	return r.seq
}
