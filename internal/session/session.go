package session

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"wisp/internal/combat"
	"wisp/internal/config"
	"wisp/internal/database"
	"wisp/internal/game"
	"wisp/internal/log"
	"wisp/internal/parser"
	"wisp/internal/scheduler"
	"wisp/internal/telnet"
	"wisp/internal/tick"
	"wisp/internal/worldmap"
)

// Session owns the transport lifecycle and the single-threaded decision
// loop. The read goroutine only ever hands decoded text over a channel;
// every state mutation happens on the loop goroutine, so the store,
// scheduler, and engagement machine never see concurrent access.
type Session struct {
	mu         sync.RWMutex
	conn       net.Conn
	connected  bool
	userClosed bool

	address string
	tuning  config.Tuning
	tables  *config.Tables
	db      database.Database

	telnet  *telnet.Handler
	parser  *parser.Parser
	store   *game.Store
	bus     *game.Bus
	clock   *tick.Clock
	sched   *scheduler.Scheduler
	engage  *combat.Machine
	tracker *worldmap.Tracker

	decoder *encoding.Decoder
	limiter *rate.Limiter

	inputChan chan string // user passthrough input

	// per-connection channels, replaced on every (re)connect so goroutines
	// of a dead connection cannot feed the new one
	chunkChan chan string
	writeChan chan string
	errChan   chan error
	connDone  chan struct{}

	lastStatusReq map[string]time.Time
}

// New builds a fully wired session. The reference database must already
// be open; its tables are loaded here and again on Reload.
func New(address string, db database.Database, tuning config.Tuning) (*Session, error) {
	tables, err := db.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference tables: %w", err)
	}

	// Default to the telnet port if none was given
	if !strings.Contains(address, ":") {
		address += ":23"
	}

	s := &Session{
		address:       address,
		tuning:        tuning,
		tables:        tables,
		db:            db,
		bus:           game.NewBus(),
		tracker:       worldmap.NewTracker(),
		decoder:       charmap.CodePage437.NewDecoder(),
		limiter:       rate.NewLimiter(rate.Limit(tuning.CommandsPerSecond), tuning.CommandBurst),
		inputChan:     make(chan string, 100),
		lastStatusReq: make(map[string]time.Time),
	}

	s.store = game.NewStore(tables, s.bus)
	s.telnet = telnet.NewHandler(s.rawWrite)
	s.clock = tick.NewClock(tuning.TickPeriod, tuning.DamageClusterWindow, tuning.TickTolerance, s.onTick)
	s.sched = scheduler.New(s.store, tables, tuning, s.clock, s.SendCommand)
	s.engage = combat.New(s.store, tables, tuning, s.SendCommand)
	s.parser = parser.New(tables, s.handleEvent)
	s.parser.SetLineHook(func(string) { s.store.CountLine() })

	return s, nil
}

// Bus exposes the notification bus for status consumers
func (s *Session) Bus() *game.Bus {
	return s.bus
}

// Store exposes read-only snapshots of game state
func (s *Session) Store() *game.Store {
	return s.store
}

// Tracker exposes the room map for export
func (s *Session) Tracker() *worldmap.Tracker {
	return s.tracker
}

// SetPaused pauses or resumes all automation
func (s *Session) SetPaused(paused bool) {
	s.store.SetPaused(paused)
}

// Reload re-reads the reference tables and rewires every consumer
func (s *Session) Reload() error {
	tables, err := s.db.LoadTables()
	if err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	s.tables = tables
	s.store.SetTables(tables)
	s.parser.SetTables(tables)
	s.sched.SetTables(tables)
	s.engage.SetTables(tables)
	s.bus.Fire(game.EventStatus, "reference tables reloaded")
	return nil
}

// Run connects and drives the session until the context is cancelled or
// the user disconnects. Unexpected connection loss triggers reconnection
// with a pause, bounded by MaxReconnects (zero means unbounded); every
// successful reconnect resets per-session sticky state.
func (s *Session) Run(ctx context.Context) error {
	attempts := 0
	connects := 0
	for {
		err := s.connect()
		if err == nil {
			attempts = 0
			if connects > 0 {
				s.store.CountReconnect()
			}
			connects++
			s.runLoop(ctx)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.mu.RLock()
		userClosed := s.userClosed
		s.mu.RUnlock()
		if userClosed {
			return nil
		}

		attempts++
		if s.tuning.MaxReconnects > 0 && attempts > s.tuning.MaxReconnects {
			return fmt.Errorf("giving up after %d reconnect attempts", attempts-1)
		}

		if err != nil {
			log.Warn("connection failed", "error", err, "attempt", attempts)
		}
		s.bus.Fire(game.EventStatus, fmt.Sprintf("reconnecting in %s (attempt %d)", s.tuning.ReconnectPause, attempts))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.tuning.ReconnectPause):
		}
	}
}

// connect dials the server and starts the I/O goroutines
func (s *Session) connect() error {
	conn, err := net.Dial("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.address, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.chunkChan = make(chan string, 100)
	s.writeChan = make(chan string, 100)
	s.errChan = make(chan error, 10)
	s.connDone = make(chan struct{})
	chunks, writes, errs, done := s.chunkChan, s.writeChan, s.errChan, s.connDone
	s.mu.Unlock()

	s.resetSessionState()

	if err := s.telnet.SendInitialNegotiation(); err != nil {
		conn.Close()
		return fmt.Errorf("telnet negotiation failed: %w", err)
	}

	go s.readLoop(conn, chunks, errs)
	go s.writeLoop(conn, writes, errs, done)

	log.Info("connected", "address", s.address)
	s.bus.Fire(game.EventStatus, "connected to "+s.address)
	return nil
}

// resetSessionState clears per-session sticky state on every (re)connect
func (s *Session) resetSessionState() {
	s.parser.Reset()
	s.telnet.Reset()
	s.clock.Reset()
	s.sched.ResetSession()
	s.engage.ResetSession()
	s.store.ResetSession()
	s.tracker.Reset()
}

// Disconnect closes the connection at the user's request, suppressing
// reconnection.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.userClosed = true
	conn := s.conn
	s.connected = false
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// IsConnected reports the transport state
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// SendInput forwards user-typed input to the server unchanged, tracking
// movement commands for the room map.
func (s *Session) SendInput(input string) {
	if dir, ok := worldmap.Direction(strings.TrimSpace(strings.ToLower(input))); ok {
		s.tracker.OnMove(dir)
	}
	s.SendCommand(input)
}

// SendCommand queues one outbound command. Fire-and-forget: the caller
// never waits on the transport.
func (s *Session) SendCommand(cmd string) {
	s.mu.RLock()
	writes := s.writeChan
	s.mu.RUnlock()
	if writes == nil {
		log.Warn("not connected, dropping command", "command", cmd)
		return
	}

	select {
	case writes <- cmd + "\r\n":
		s.store.CountCommand()
	default:
		log.Warn("outbound queue full, dropping command", "command", cmd)
	}
}

// rawWrite sends bytes directly (telnet negotiation path)
func (s *Session) rawWrite(data []byte) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	_, err := conn.Write(data)
	return err
}

// readLoop pulls bytes off the wire, filters telnet, decodes CP437, and
// hands the text to the decision loop. It never touches state itself.
// The channels belong to this connection; when it dies they die with it.
func (s *Session) readLoop(conn net.Conn, chunks chan<- string, errs chan<- error) {
	buffer := make([]byte, 4096)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			select {
			case errs <- fmt.Errorf("read error: %w", err):
			default:
			}
			return
		}
		if n == 0 {
			continue
		}

		plain := s.telnet.Filter(buffer[:n])
		if len(plain) == 0 {
			continue
		}
		decoded, err := s.decoder.Bytes(plain)
		if err != nil {
			// Undecodable bytes degrade to the raw text
			decoded = plain
		}

		select {
		case chunks <- string(decoded):
		default:
			log.Warn("inbound queue full, dropping chunk", "bytes", len(decoded))
		}
	}
}

// writeLoop drains the outbound queue through the rate limiter. It exits
// when its connection's done channel closes, so a dead connection's loop
// never lingers to steal commands meant for its successor.
func (s *Session) writeLoop(conn net.Conn, writes <-chan string, errs chan<- error, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-writes:
			if err := s.limiter.Wait(context.Background()); err != nil {
				return
			}
			if _, err := conn.Write([]byte(cmd)); err != nil {
				select {
				case errs <- fmt.Errorf("write error: %w", err):
				default:
				}
				return
			}
		}
	}
}

// runLoop is the single-threaded decision loop: inbound text, timers,
// and user input all marshal through here before touching state.
func (s *Session) runLoop(ctx context.Context) {
	poll := time.NewTicker(s.tuning.PollInterval)
	idle := time.NewTicker(s.tuning.IdleEvalInterval)
	sweep := time.NewTicker(s.tuning.EffectSweepInterval)
	defer poll.Stop()
	defer idle.Stop()
	defer sweep.Stop()

	// This connection's channels; a stale goroutine's error cannot arrive
	// here because it holds the previous connection's channels.
	s.mu.RLock()
	chunks, errs := s.chunkChan, s.errChan
	s.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			s.closeConn()
			return

		case err := <-errs:
			log.Warn("connection lost", "error", err)
			s.bus.Fire(game.EventStatus, "connection lost")
			s.closeConn()
			return

		case chunk := <-chunks:
			s.parser.ProcessChunk(chunk)

		case input := <-s.inputChan:
			s.SendInput(input)

		case <-poll.C:
			now := time.Now()
			s.clock.Poll(now)
			s.engage.Poll(now)

		case <-idle.C:
			now := time.Now()
			s.sched.OnIdleTimer(now)
			s.requestStaleStatus(now)

		case <-sweep.C:
			s.store.SweepEffects(time.Now(), s.tuning.CureRetryTimeout)
		}
	}
}

// closeConn tears down the transport after the loop exits. Closing the
// done channel releases the connection's parked writeLoop.
func (s *Session) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	if s.connDone != nil {
		close(s.connDone)
		s.connDone = nil
	}
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Input exposes the user-input channel for a front end
func (s *Session) Input() chan<- string {
	return s.inputChan
}

// onTick runs on every tick boundary: the cast block lifts, the combat
// machine may retry its spell, and a scheduling pass runs.
func (s *Session) onTick(now time.Time) {
	s.engage.OnTick(now)
	s.sched.OnTick(now)
	s.bus.Fire(game.EventTick, now)
}

// handleEvent routes one extracted event into the state machines. Runs
// on the decision loop because the parser is fed from there.
func (s *Session) handleEvent(ev parser.Event) {
	now := time.Now()

	switch e := ev.(type) {
	case parser.VitalsEvent:
		s.store.ApplyVitals(e)

	case parser.StatBlockEvent:
		s.store.ApplyStatBlock(e)

	case parser.PartyRosterEvent:
		s.store.ApplyRoster(e)

	case parser.StatusPingEvent:
		s.store.ApplyStatusPing(e)

	case parser.CastFailureEvent:
		log.Debug("cast failure, blocking until next tick", "kind", int(e.Kind))
		s.sched.OnCastFailure()

	case parser.BuffCastEvent:
		s.store.RecordEffect(e.BuffID, s.resolveTarget(e.Target), now)

	case parser.BuffExpiredEvent:
		s.store.ClearEffect(e.BuffID, s.resolveTarget(e.Target))

	case parser.AilmentDetectedEvent:
		s.store.AddAilment(e.AilmentID, s.resolveTarget(e.Target), now)

	case parser.AilmentCuredEvent:
		s.store.ClearAilment(e.AilmentID, s.resolveTarget(e.Target))

	case parser.CombatEvent:
		if e.Engaged {
			s.clock.RecordEngagement(now)
			s.engage.OnEngaged(now)
		} else {
			s.engage.OnDisengaged()
		}

	case parser.RoomContentsEvent:
		s.engage.OnRoomContents(e, now)

	case parser.DamageEvent:
		s.clock.RecordDamage(now)

	case parser.RoomHeaderEvent:
		s.engage.OnRoomChange()
		s.tracker.OnRoom(e.Name)
	}
}

// resolveTarget maps a captured message target onto store keys: the
// empty string for self, a member's short name when it matches, and the
// raw text otherwise.
func (s *Session) resolveTarget(raw string) string {
	if raw == "" || s.store.IsSelf(raw) {
		return ""
	}
	for _, m := range s.store.Party() {
		if raw == m.Short || raw == m.Full || strings.HasPrefix(m.Full, raw+" ") {
			return m.Short
		}
	}
	return raw
}

// requestStaleStatus asks at most one stale party member for an exact
// vitals report, out of combat only.
func (s *Session) requestStaleStatus(now time.Time) {
	if s.store.InCombat() || s.store.Paused() || s.store.Training() {
		return
	}
	if s.tuning.StatusRequestCommand == "" {
		return
	}

	for _, m := range s.store.StaleMembers(s.tuning.StalenessWindow) {
		if s.store.IsSelf(m.Full) || s.store.IsSelf(m.Short) {
			continue
		}
		if last, ok := s.lastStatusReq[m.Short]; ok && now.Sub(last) < s.tuning.StalenessWindow {
			continue
		}
		s.lastStatusReq[m.Short] = now
		s.SendCommand(fmt.Sprintf(s.tuning.StatusRequestCommand, m.Short))
		return
	}
}
