// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/logging"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/components"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// MODEL STATE
// =============================================================================

// State is the coarse UI state shown in the status bar.
type State int

const (
	// StateReady means the input is accepting a new prompt.
	StateReady State = iota
	// StateStreaming means at least one direct stream is producing output.
	StateStreaming
	// StateError means the last operation failed and the banner is up.
	StateError
)

// streamView is the visible side of one in-flight request: drained
// stream content plus terminal bookkeeping. The optimistic entry
// itself lives in the tracker; this only holds what rendering needs.
type streamView struct {
	visible    strings.Builder
	failed     bool
	errorText  string
	terminalAt time.Time
}

// errorBanner is the dismissible error shown under the transcript.
type errorBanner struct {
	Title   string
	Message string
	Tip     string
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps carries everything the chat model needs. The cli layer builds
// these once and hands them over; the model owns no construction.
type Deps struct {
	Config  *config.Config
	Client  *api.Client
	Tracker *track.Tracker
	Board   *queue.Board
	Session *session.Manager
	Latency *telemetry.LatencyTracker
	Macros  *macro.Store
	Cache   *history.SessionCache

	Streamer *Streamer
	Buffers  *StreamBuffer
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the cockpit chat view: transcript, input line, queue and
// telemetry panels, and the overlays above them.
type Model struct {
	cfg     *config.Config
	client  *api.Client
	tracker *track.Tracker
	board   *queue.Board
	sess    *session.Manager
	latency *telemetry.LatencyTracker
	macros  *macro.Store
	cache   *history.SessionCache

	streamer *Streamer
	buffers  *StreamBuffer

	registry   *commands.Registry
	parser     *commands.Parser
	completer  *commands.Completer
	completion *commands.CompletionState
	cmdCtx     *commands.Context

	// entries is the merged confirmed transcript, system notices
	// included. streams carries the visible side of in-flight requests.
	entries   []history.Entry
	streams   map[string]*streamView
	grace     history.GraceWindow
	clearedAt time.Time

	theme      *styles.Theme
	header     *components.Header
	statusBar  *components.StatusBar
	msgList    *components.MessageList
	queuePanel *components.QueuePanel
	telPanel   *components.TelemetryPanel
	drawer     *components.Drawer
	helpView   *components.HelpOverlay
	popup      *components.CompletionPopup
	wait       components.WaitIndicator
	viewport   viewport.Model
	input      textinput.Model
	keys       KeyMap
	vim        *VimHandler

	width  int
	height int
	ready  bool

	state          State
	chatMode       api.ChatMode
	forcedTool     string
	forcedProvider string
	activeMacro    string

	runtimes      []api.Runtime
	activeRuntime string
	queueStatus   api.QueueStatus
	feedState     components.FeedState
	orchVersion   string

	gate    *api.RefreshGate
	ticking bool

	lastError  *errorBanner
	showHelp   bool
	showQueue  bool
	showTel    bool
	showDrawer bool
}

// New creates the chat model. The streamer keeps running goroutines;
// everything else here is passive until Init.
func New(deps Deps) Model {
	cfg := deps.Config
	theme := styles.NewTheme(cfg.UI.Theme)

	input := textinput.New()
	input.Placeholder = "prompt or /command"
	input.Prompt = "> "
	input.CharLimit = 0
	input.Width = 72
	input.Focus()

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)

	grace := history.GraceWindow{
		FloorMs:   cfg.UI.GraceFloorMs,
		CeilingMs: cfg.UI.GraceCeilingMs,
	}
	if grace.FloorMs <= 0 || grace.CeilingMs < grace.FloorMs {
		grace = history.DefaultGraceWindow()
	}

	cmdCtx := commands.NewContext(cfg, deps.Client, deps.Tracker, deps.Session, deps.Macros)
	cmdCtx = cmdCtx.WithLatency(deps.Latency)

	m := Model{
		cfg:     cfg,
		client:  deps.Client,
		tracker: deps.Tracker,
		board:   deps.Board,
		sess:    deps.Session,
		latency: deps.Latency,
		macros:  deps.Macros,
		cache:   deps.Cache,

		streamer: deps.Streamer,
		buffers:  deps.Buffers,

		registry:   registry,
		parser:     commands.NewParser(registry),
		completer:  completer,
		completion: commands.NewCompletionState(),
		cmdCtx:     cmdCtx,

		streams: make(map[string]*streamView),
		grace:   grace,

		theme:      theme,
		header:     components.NewHeader(theme),
		statusBar:  components.NewStatusBar(theme),
		msgList:    components.NewMessageList(theme),
		queuePanel: components.NewQueuePanel(theme),
		telPanel:   components.NewTelemetryPanel(theme),
		drawer:     components.NewDrawer(theme),
		helpView:   components.NewHelpOverlay(theme),
		popup:      components.NewCompletionPopup(theme),
		wait:       components.NewWaitIndicator(),
		input:      input,
		keys:       DefaultKeyMap(),
		vim:        NewVimHandler(cfg.UI.VimMode),

		chatMode:  api.ChatMode(cfg.Orchestrator.DefaultMode),
		feedState: components.FeedReconnecting,
		gate:      api.NewRefreshGate(2, 3),
	}

	if !api.ValidChatMode(string(m.chatMode)) {
		m.chatMode = api.ModeNormal
	}
	if !cfg.Events.Enabled {
		m.feedState = components.FeedDisconnected
	}

	m.msgList.SetSyntaxTheme(cfg.UI.SyntaxTheme)
	m.wireCompleter()

	// Warm start from the session cache; the first history fetch
	// reconciles against the orchestrator.
	if m.cache != nil {
		if cached := m.cache.Load(m.sess.SessionID(), m.sess.BootID()); len(cached) > 0 {
			m.entries = history.Merge(cached)
		}
	}

	return m
}

// wireCompleter connects the dynamic completion sources.
func (m *Model) wireCompleter() {
	macros := m.macros
	m.completer.MacrosFn = func() []string {
		if macros == nil {
			return nil
		}
		names, err := macros.Names()
		if err != nil {
			return nil
		}
		return names
	}
	m.completer.ConfigFn = config.GetAllKeys
}

// Init starts the background fetches and timers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit),
		checkHealthCmd(m.client),
		fetchQueueCmd(m.client),
		fetchRuntimesCmd(m.client),
		session.TickCmd(),
		waitBoardCmd(m.board),
		pollTickCmd(m.pollInterval()),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update is the message dispatch. Keyboard goes through handleKey,
// everything else has a typed handler; command-layer messages fall
// through to handleCommandMsg.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	// Ticks.
	case RenderTickMsg:
		return m.handleRenderTick()
	case streamNudgeMsg:
		if m.applyDrained(m.buffers.DrainAll()) {
			m.refreshTranscript()
		}
		return m, nil
	case PollTickMsg:
		return m.handlePollTick()
	case session.TickMsg:
		return m, m.sess.HandleTick()
	case session.IdleWarningMsg:
		m.addNotice("idle for " + session.FormatDuration(msg.Idle) + "; session is still live")
		return m, nil
	case session.FlushMsg:
		m.flushCache()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.wait, cmd = m.wait.Update(msg)
		return m, cmd

	// Submission acknowledgements.
	case SubmitAckMsg:
		return m.handleSubmitAck(msg)
	case SubmitFailedMsg:
		return m.handleSubmitFailed(msg)

	// Direct stream lifecycle.
	case StreamLinkedMsg:
		m.tracker.Link(msg.ClientID, msg.RequestID)
		return m, nil
	case StreamFirstByteMsg:
		return m.handleStreamFirstByte(msg)
	case StreamDoneMsg:
		return m.handleStreamDone(msg)
	case StreamFailedMsg:
		return m.handleStreamFailed(msg)

	// Event feed.
	case FeedEventMsg:
		return m.handleFeedEvent(msg.Event)
	case FeedStateMsg:
		return m.handleFeedState(msg)

	// Data fetch results.
	case HistoryMsg:
		return m.handleHistory(msg)
	case HealthMsg:
		return m.handleHealth(msg)
	case QueueSnapshotMsg:
		return m.handleQueueSnapshot(msg)
	case RuntimesMsg:
		return m.handleRuntimes(msg)
	case TaskNotificationMsg:
		return m.handleTaskNotification(msg)
	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	// Macro progress.
	case MacroStepMsg:
		return m.handleMacroStep(msg)
	case MacroDoneMsg:
		return m.handleMacroDone(msg)

	// Vim ex commands.
	case VimCommandMsg:
		return m.handleVimCommand(msg)
	}

	if model, cmd, handled := m.handleCommandMsg(msg); handled {
		return model, cmd
	}
	return m, nil
}

// =============================================================================
// TICK HANDLERS
// =============================================================================

// handleRenderTick drains the stream buffers and re-arms while
// anything is live or settling.
func (m Model) handleRenderTick() (tea.Model, tea.Cmd) {
	changed := m.applyDrained(m.buffers.DrainAll())
	if changed || m.settling() {
		m.refreshTranscript()
	}

	if m.needsTicks() {
		return m, renderTickCmd(m.cfg.UI.StreamFPS)
	}
	m.ticking = false
	return m, nil
}

// applyDrained appends drained stream content to the per-request
// views. Content for dropped requests is discarded.
func (m *Model) applyDrained(drained map[string]string) bool {
	if len(drained) == 0 {
		return false
	}
	changed := false
	for clientID, content := range drained {
		if !m.tracker.Has(clientID) {
			continue
		}
		sv := m.streams[clientID]
		if sv == nil {
			sv = &streamView{}
			m.streams[clientID] = sv
		}
		sv.visible.WriteString(content)
		changed = true
	}
	if changed && m.wait.IsActive() {
		m.wait.Stop()
	}
	return changed
}

// settling reports whether any stream is terminal but still inside
// its grace window, meaning the transcript changes between ticks even
// without new content.
func (m *Model) settling() bool {
	for _, sv := range m.streams {
		if !sv.terminalAt.IsZero() {
			return true
		}
	}
	return false
}

// needsTicks reports whether the render tick loop must keep running.
func (m *Model) needsTicks() bool {
	return m.buffers.HasPending() || len(m.streams) > 0 || m.tracker.Len() > 0
}

// ensureTick arms the render tick loop if it is not already running.
func (m *Model) ensureTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return renderTickCmd(m.cfg.UI.StreamFPS)
}

// handlePollTick reconciles against the orchestrator. Fast cadence
// while the feed is down, slow keep-alive while it is live.
func (m Model) handlePollTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{pollTickCmd(m.pollInterval())}
	if m.gate.Allow() {
		cmds = append(cmds,
			fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit),
			fetchQueueCmd(m.client),
		)
	}
	return m, tea.Batch(cmds...)
}

// pollInterval returns the reconcile cadence for the current feed
// state.
func (m *Model) pollInterval() time.Duration {
	fallback := time.Duration(m.cfg.Events.PollFallbackSecs) * time.Second
	if fallback <= 0 {
		fallback = 3 * time.Second
	}
	if m.feedState == components.FeedConnected {
		// The feed carries completions; polling only guards against
		// missed events.
		return 15 * time.Second
	}
	return fallback
}

// =============================================================================
// SUBMISSION HANDLERS
// =============================================================================

// handleSubmitAck links the optimistic entry to the server id.
func (m Model) handleSubmitAck(msg SubmitAckMsg) (tea.Model, tea.Cmd) {
	if msg.Resp == nil || !m.tracker.Has(msg.ClientID) {
		return m, nil
	}
	m.tracker.Link(msg.ClientID, msg.Resp.RequestID)
	if msg.TaskID != "" {
		m.board.Link(msg.TaskID, msg.Resp.RequestID)
	}
	logging.WithField("request_id", msg.Resp.RequestID).Debugf("submission acknowledged")
	return m, nil
}

// handleSubmitFailed drops the optimistic entry and surfaces the
// error. The prompt is not silently retried.
func (m Model) handleSubmitFailed(msg SubmitFailedMsg) (tea.Model, tea.Cmd) {
	m.tracker.Drop(msg.ClientID)
	m.buffers.Drop(msg.ClientID)
	delete(m.streams, msg.ClientID)
	if msg.TaskID != "" {
		m.board.Cancel(msg.TaskID)
	}
	m.wait.Stop()
	m.state = StateError
	m.setError("submission failed", friendlyError(msg.Err), submitTip(msg.Err))
	m.addNotice("submission failed: " + friendlyError(msg.Err))
	return m, nil
}

// =============================================================================
// STREAM LIFECYCLE HANDLERS
// =============================================================================

// handleStreamFirstByte records time-to-first-token.
func (m Model) handleStreamFirstByte(msg StreamFirstByteMsg) (tea.Model, tea.Cmd) {
	req, ok := m.tracker.Get(msg.ClientID)
	if !ok {
		return m, nil
	}
	ttft := msg.At.Sub(req.StartedAt).Milliseconds()
	m.tracker.RecordTiming(req.EffectiveID(), track.TimingPatch{TTFTMs: track.Ms(ttft)})
	m.wait.Stop()
	return m, nil
}

// handleStreamDone finalizes a direct stream: drain the tail, mark
// terminal, and let the grace window settle it against history.
func (m Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	sv := m.streams[msg.ClientID]
	if sv == nil {
		if !m.tracker.Has(msg.ClientID) {
			return m, nil
		}
		sv = &streamView{}
		m.streams[msg.ClientID] = sv
	}
	if tail, ok := m.buffers.ForceDrain(msg.ClientID); ok {
		sv.visible.WriteString(tail)
	}
	sv.terminalAt = time.Now()

	m.finishIfQuiet()
	m.refreshTranscript()

	cmds := []tea.Cmd{m.ensureTick()}
	if m.gate.Allow() {
		cmds = append(cmds, fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit))
	}
	return m, tea.Batch(cmds...)
}

// handleStreamFailed marks the stream failed; the failed bubble shows
// the error until history confirms the failure.
func (m Model) handleStreamFailed(msg StreamFailedMsg) (tea.Model, tea.Cmd) {
	sv := m.streams[msg.ClientID]
	if sv == nil {
		if !m.tracker.Has(msg.ClientID) {
			return m, nil
		}
		sv = &streamView{}
		m.streams[msg.ClientID] = sv
	}
	if tail, ok := m.buffers.ForceDrain(msg.ClientID); ok {
		sv.visible.WriteString(tail)
	}
	sv.failed = true
	sv.errorText = friendlyError(msg.Err)
	sv.terminalAt = time.Now()

	m.wait.Stop()
	m.state = StateError
	m.setError("stream failed", friendlyError(msg.Err), submitTip(msg.Err))
	m.refreshTranscript()

	cmds := []tea.Cmd{m.ensureTick()}
	if m.gate.Allow() {
		cmds = append(cmds, fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit))
	}
	return m, tea.Batch(cmds...)
}

// finishIfQuiet drops back to ready once no stream is still open.
func (m *Model) finishIfQuiet() {
	if m.activeMacro != "" {
		return
	}
	for _, sv := range m.streams {
		if sv.terminalAt.IsZero() {
			return
		}
	}
	m.wait.Stop()
	if m.state == StateStreaming {
		m.state = StateReady
	}
}

// =============================================================================
// FEED HANDLERS
// =============================================================================

// handleFeedEvent applies one orchestrator event. Request-scoped
// events update the queue board and any tracked optimistic entry.
func (m Model) handleFeedEvent(ev events.Event) (tea.Model, tea.Cmd) {
	if m.feedState != components.FeedConnected {
		m.feedState = components.FeedConnected
	}

	var cmds []tea.Cmd

	switch ev.Type {
	case events.EventHeartbeat:
		return m, nil

	case events.EventQueueChanged:
		if ev.Queue != nil {
			m.queueStatus = *ev.Queue
		} else if m.gate.Allow() {
			cmds = append(cmds, fetchQueueCmd(m.client))
		}

	case events.EventRuntimeChanged:
		if ev.Runtime != "" && ev.Runtime != m.activeRuntime {
			m.activeRuntime = ev.Runtime
			m.addNotice("runtime switched to " + ev.Runtime)
		}

	case events.EventQueued, events.EventStarted:
		m.board.ApplyEvent(ev)

	case events.EventDelta:
		m.board.ApplyEvent(ev)
		if clientID, ok := m.clientIDForRequest(ev.RequestID); ok && ev.Delta != "" {
			if m.buffers.Write(clientID, ev.Delta) {
				if m.applyDrained(m.buffers.DrainAll()) {
					m.refreshTranscript()
				}
			}
			cmds = append(cmds, m.ensureTick())
		}

	case events.EventFinished:
		m.board.ApplyEvent(ev)
		if clientID, ok := m.clientIDForRequest(ev.RequestID); ok {
			sv := m.streams[clientID]
			if sv == nil {
				sv = &streamView{}
				m.streams[clientID] = sv
			}
			if tail, ok := m.buffers.ForceDrain(clientID); ok {
				sv.visible.WriteString(tail)
			}
			// Queued-path responses can arrive whole in the finish
			// event without any deltas before them.
			if ev.Response != "" && sv.visible.Len() == 0 {
				sv.visible.WriteString(ev.Response)
			}
			if ev.Status == api.StatusFailed || ev.Status == api.StatusLost {
				sv.failed = true
				sv.errorText = ev.ErrorMsg
				if sv.errorText == "" {
					sv.errorText = "request " + strings.ToLower(string(ev.Status))
				}
			}
			sv.terminalAt = time.Now()
			m.finishIfQuiet()
			m.refreshTranscript()
			cmds = append(cmds, m.ensureTick())
		}
		if m.gate.Allow() {
			cmds = append(cmds, fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit))
		}
	}

	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

// handleFeedState flips the feed badge and poll cadence.
func (m Model) handleFeedState(msg FeedStateMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Down:
		if m.feedState != components.FeedDisconnected {
			m.feedState = components.FeedDisconnected
			m.addNotice("event feed down; falling back to polling")
		}
	case msg.Err != nil:
		if m.feedState == components.FeedConnected {
			m.feedState = components.FeedReconnecting
		}
		logging.Debugf("feed error: %v", msg.Err)
	case msg.Connected:
		m.feedState = components.FeedConnected
	}
	return m, nil
}

// clientIDForRequest resolves a server request id to the tracked
// optimistic entry, if any. The tracker is small; a scan is fine.
func (m *Model) clientIDForRequest(requestID string) (string, bool) {
	if requestID == "" {
		return "", false
	}
	for _, req := range m.tracker.Snapshot() {
		if req.EffectiveID() == requestID || req.RequestID == requestID {
			return req.ClientID, true
		}
	}
	return "", false
}

// =============================================================================
// DATA HANDLERS
// =============================================================================

// handleHistory merges fetched history, prunes settled optimistic
// entries, records their telemetry, and writes the cache through.
func (m Model) handleHistory(msg HistoryMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.Debugf("history fetch failed: %v", msg.Err)
		return m, nil
	}
	if msg.SessionID != m.sess.SessionID() {
		// Stale fetch from before a session switch.
		return m, nil
	}

	m.entries = history.Merge(append(m.entries, history.FromRecords(msg.Records)...))
	m.recordHistoryTimings(msg.Records)
	m.pruneAgainstHistory(msg.Records)
	m.flushCache()
	m.refreshTranscript()
	return m, nil
}

// recordHistoryTimings stamps history_ms for tracked requests the
// fetch just covered: time from submission until history reflected
// the request.
func (m *Model) recordHistoryTimings(records []api.RequestRecord) {
	if len(records) == 0 {
		return
	}
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		seen[rec.RequestID] = true
	}
	for _, req := range m.tracker.Snapshot() {
		if !seen[req.EffectiveID()] {
			continue
		}
		if t, ok := m.tracker.Timing(req.EffectiveID()); ok && t.HistoryMs != nil {
			continue
		}
		elapsed := time.Since(req.StartedAt).Milliseconds()
		m.tracker.RecordTiming(req.EffectiveID(), track.TimingPatch{HistoryMs: track.Ms(elapsed)})
	}
}

// pruneAgainstHistory removes optimistic entries that history has
// confirmed terminal and records a telemetry sample for each.
func (m *Model) pruneAgainstHistory(records []api.RequestRecord) {
	byID := make(map[string]api.RequestRecord, len(records))
	for _, rec := range records {
		byID[rec.RequestID] = rec
	}

	// Timings disappear with the tracker entry; snapshot them first.
	type pruneInfo struct {
		effectiveID string
		timing      track.Timing
		hasTiming   bool
	}
	info := make(map[string]pruneInfo)
	for _, req := range m.tracker.Snapshot() {
		pi := pruneInfo{effectiveID: req.EffectiveID()}
		if t, ok := m.tracker.Timing(req.EffectiveID()); ok {
			pi.timing = t
			pi.hasTiming = true
		}
		info[req.ClientID] = pi
	}

	m.tracker.PruneAgainstHistory(records, func(clientID string, d time.Duration) {
		delete(m.streams, clientID)
		m.buffers.Drop(clientID)

		pi := info[clientID]
		rec, ok := byID[pi.effectiveID]
		if !ok {
			return
		}
		sample := telemetry.Sample{
			RequestID:  rec.RequestID,
			SessionID:  rec.SessionID,
			Prompt:     rec.Prompt,
			ChatMode:   string(rec.ChatMode),
			Status:     string(rec.Status),
			DurationMs: d.Milliseconds(),
			Timestamp:  time.Now(),
		}
		if pi.hasTiming {
			sample.HistoryMs = pi.timing.HistoryMs
			sample.TTFTMs = pi.timing.TTFTMs
		}
		if m.latency != nil {
			m.latency.Record(sample)
		}
		m.board.ApplyRecord(rec)
	})

	m.finishIfQuiet()
}

// handleHealth updates the connection status from a probe.
func (m Model) handleHealth(msg HealthMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setError("orchestrator unreachable", friendlyError(msg.Err), "check that the orchestrator is running, or /config set orchestrator.url")
		m.state = StateError
		return m, nil
	}
	m.orchVersion = msg.Version
	if m.state == StateError && m.lastError != nil && m.lastError.Title == "orchestrator unreachable" {
		m.lastError = nil
		m.state = StateReady
	}
	return m, nil
}

// handleQueueSnapshot stores the orchestrator queue status.
func (m Model) handleQueueSnapshot(msg QueueSnapshotMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.Debugf("queue fetch failed: %v", msg.Err)
		return m, nil
	}
	m.queueStatus = msg.Status
	return m, nil
}

// handleRuntimes stores the runtime list and picks out the active one.
func (m Model) handleRuntimes(msg RuntimesMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.Debugf("runtime fetch failed: %v", msg.Err)
		return m, nil
	}
	m.runtimes = msg.Runtimes
	for _, rt := range msg.Runtimes {
		if rt.Active {
			m.activeRuntime = rt.Name
			break
		}
	}
	m.syncCompleterRuntimes()
	return m, nil
}

// syncCompleterRuntimes feeds the current runtime names to completion.
func (m *Model) syncCompleterRuntimes() {
	names := make([]string, 0, len(m.runtimes))
	for _, rt := range m.runtimes {
		names = append(names, rt.Name)
	}
	m.completer.ProvidersFn = func() []string { return names }
}

// handleTaskNotification surfaces a finished queued task and re-arms
// the board listener.
func (m Model) handleTaskNotification(msg TaskNotificationMsg) (tea.Model, tea.Cmd) {
	if m.cfg.Queue.Notifications {
		m.addNotice(taskNoticeText(msg.Note))
	}
	return m, waitBoardCmd(m.board)
}

// handleConfigReloaded applies a config hot-reloaded from disk.
// Connection settings need a restart; display settings apply live.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	m.cfg.UI = msg.Config.UI
	m.cfg.Queue = msg.Config.Queue
	m.cfg.Session = msg.Config.Session

	m.applyUIConfig()
	m.addNotice("config reloaded")
	return m, nil
}

// applyUIConfig pushes the UI config into the live components.
func (m *Model) applyUIConfig() {
	*m.theme = *styles.NewTheme(m.cfg.UI.Theme)
	if m.width > 0 {
		m.theme.SetSize(m.width, m.height)
	}
	m.msgList.SetSyntaxTheme(m.cfg.UI.SyntaxTheme)
	m.buffers.SetMaxFPS(m.cfg.UI.StreamFPS)
	m.vim.SetEnabled(m.cfg.UI.VimMode)
	if !m.vim.Enabled() && !m.input.Focused() {
		m.input.Focus()
	}
	m.grace = history.GraceWindow{
		FloorMs:   m.cfg.UI.GraceFloorMs,
		CeilingMs: m.cfg.UI.GraceCeilingMs,
	}
	if m.grace.FloorMs <= 0 || m.grace.CeilingMs < m.grace.FloorMs {
		m.grace = history.DefaultGraceWindow()
	}
	m.refreshTranscript()
}

// =============================================================================
// VIM COMMAND HANDLER
// =============================================================================

// handleVimCommand executes ex commands against cockpit state.
func (m Model) handleVimCommand(msg VimCommandMsg) (tea.Model, tea.Cmd) {
	switch msg.Command {
	case "flush":
		m.flushCache()
		m.addNotice("session cache flushed")
	case "drop":
		if id, ok := m.dropRequest(msg.Value); ok {
			m.addNotice("dropped " + id)
		}
	case "clear":
		return m.clearTranscript()
	case "help":
		m.openHelp()
	case "vim":
		on := msg.Value == "on"
		m.cfg.UI.VimMode = on
		m.vim.SetEnabled(on)
		if !on && !m.input.Focused() {
			m.input.Focus()
		}
		if on {
			m.addNotice("vim mode on")
		} else {
			m.addNotice("vim mode off")
		}
	case "unknown":
		m.addNotice("unknown command: :" + msg.Value)
	}
	return m, nil
}

// =============================================================================
// TRANSCRIPT STATE
// =============================================================================

// refreshTranscript rebuilds the projection and pushes it into the
// viewport, keeping the bottom pinned when it was pinned.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	msgs := m.projectTranscript(time.Now())
	m.msgList.SetMessages(msgs)

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.msgList.View())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// projectTranscript merges confirmed entries with live streams.
func (m *Model) projectTranscript(now time.Time) []history.ChatMessage {
	return history.Project(m.visibleEntries(), m.liveRequests(), now, m.grace)
}

// visibleEntries applies the clear watermark.
func (m *Model) visibleEntries() []history.Entry {
	if m.clearedAt.IsZero() {
		return m.entries
	}
	out := make([]history.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Timestamp.After(m.clearedAt) {
			out = append(out, e)
		}
	}
	return out
}

// liveRequests builds the projection input from the tracker plus the
// visible stream state.
func (m *Model) liveRequests() []history.LiveRequest {
	snap := m.tracker.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	out := make([]history.LiveRequest, 0, len(snap))
	for _, req := range snap {
		lr := history.LiveRequest{
			ClientID:  req.ClientID,
			RequestID: req.EffectiveID(),
			Prompt:    req.Prompt,
			CreatedAt: req.CreatedAt,
		}
		if sv, ok := m.streams[req.ClientID]; ok {
			lr.Buffer = sv.visible.String()
			lr.Failed = sv.failed
			lr.ErrorText = sv.errorText
			lr.TerminalAt = sv.terminalAt
		}
		out = append(out, lr)
	}
	return out
}

// addNotice appends a local system message to the transcript.
func (m *Model) addNotice(text string) {
	m.entries = append(m.entries, history.Entry{
		Role:      history.RoleSystem,
		Content:   text,
		Timestamp: time.Now(),
		SessionID: m.sess.SessionID(),
	})
	m.sess.MarkDirty()
	m.refreshTranscript()
}

// setError raises the dismissible error banner.
func (m *Model) setError(title, message, tip string) {
	m.lastError = &errorBanner{Title: title, Message: message, Tip: tip}
}

// clearError dismisses the banner and leaves error state.
func (m *Model) clearError() {
	m.lastError = nil
	if m.state == StateError {
		m.state = StateReady
	}
}

// clearTranscript hides everything before now. Tracked requests and
// the cache keep their state; only the view resets.
func (m Model) clearTranscript() (Model, tea.Cmd) {
	m.clearedAt = time.Now()
	m.refreshTranscript()
	m.viewport.GotoTop()
	return m, nil
}

// flushCache writes the merged transcript tail through to the session
// cache.
func (m *Model) flushCache() {
	if m.cache == nil {
		return
	}
	m.cache.Store(m.sess.SessionID(), m.sess.BootID(), m.entries)
	m.sess.MarkClean()
}

// openHelp builds and shows the help overlay.
func (m *Model) openHelp() {
	m.helpView.SetSections("cockpit", helpSections(m.vim.Enabled(), m.registry))
	m.showHelp = true
}

// =============================================================================
// RESIZE
// =============================================================================

// Layout height reserves. The view measures real heights and falls
// back; these only size the viewport between resizes.
const (
	headerReserve     = 4
	inputReserve      = 2
	statusReserve     = 1
	minViewportHeight = 3
	minPanelWidth     = 30
	maxPanelWidth     = 44
)

// handleResize recomputes every component's dimensions.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	headerH := headerReserve
	if m.cfg.UI.CompactMode || msg.Height < 20 {
		headerH = 1
	}
	viewportHeight := msg.Height - headerH - inputReserve - statusReserve
	if viewportHeight < minViewportHeight {
		viewportHeight = minViewportHeight
	}

	transcriptWidth := msg.Width
	if m.showQueue || m.showTel {
		transcriptWidth = msg.Width - m.panelWidth() - 1
	}
	if transcriptWidth < 20 {
		transcriptWidth = 20
	}

	if !m.ready {
		m.viewport = viewport.New(transcriptWidth, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = transcriptWidth
		m.viewport.Height = viewportHeight
	}

	m.header.SetWidth(msg.Width)
	m.statusBar.SetWidth(msg.Width)
	m.msgList.SetWidth(transcriptWidth)
	m.queuePanel.SetWidth(m.panelWidth())
	m.telPanel.SetWidth(m.panelWidth())
	m.drawer.SetWidth(min(msg.Width-4, 72))
	m.helpView.SetSize(msg.Width, msg.Height)
	m.popup.SetWidth(min(msg.Width-4, 64))

	inputWidth := msg.Width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.refreshTranscript()
	return m, nil
}

// panelWidth sizes the sidebar from the terminal width.
func (m *Model) panelWidth() int {
	w := m.width / 3
	if w < minPanelWidth {
		w = minPanelWidth
	}
	if w > maxPanelWidth {
		w = maxPanelWidth
	}
	return w
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey routes keyboard input. Priority: emergency quit, modal
// overlays, completion, panels, vim, global bindings, then the input
// line.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Always available, even mid-stream.
	if keyStr == "ctrl+q" {
		return m, tea.Quit
	}

	if m.showHelp {
		switch keyStr {
		case "?", "esc", "q", "enter":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showDrawer {
		switch keyStr {
		case "esc", "q":
			m.showDrawer = false
		case "up", "k":
			m.queuePanel.MoveUp()
			m.syncDrawer()
		case "down", "j":
			m.queuePanel.MoveDown()
			m.syncDrawer()
		}
		return m, nil
	}

	// Completion captures its navigation keys while visible.
	if m.completion.Visible {
		if model, cmd, handled := m.handleCompletionKey(msg); handled {
			return model, cmd
		}
	}

	if m.showQueue {
		switch keyStr {
		case "up":
			m.queuePanel.MoveUp()
			return m, nil
		case "down":
			m.queuePanel.MoveDown()
			return m, nil
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				return m.openDrawer()
			}
		case "esc":
			m.showQueue = false
			return m.resizeForPanels()
		}
	}

	// Vim gets the key before the global bindings so normal-mode
	// letters never fall through to the input.
	if m.vim.Enabled() {
		if handled, cmd := m.vim.HandleKey(msg, &m.viewport, &m.input); handled {
			return m, cmd
		}
	}

	switch keyStr {
	case "ctrl+c":
		return m.handleInterrupt()

	case "esc":
		switch {
		case m.lastError != nil:
			m.clearError()
		case m.completion.Visible:
			m.completion.Clear()
			m.popup.Clear()
		case m.showTel:
			m.showTel = false
			return m.resizeForPanels()
		case m.input.Value() != "":
			m.input.Reset()
		}
		return m, nil

	case "?":
		if strings.TrimSpace(m.input.Value()) == "" {
			m.openHelp()
			return m, nil
		}

	case "enter":
		return m.submitInput()

	case "ctrl+l":
		return m.clearTranscript()

	case "ctrl+r":
		m.cycleMode()
		return m, nil

	case "ctrl+x":
		if id, ok := m.dropRequest(""); ok {
			m.addNotice("dropped " + id)
		}
		return m, nil

	case "ctrl+t":
		m.showQueue = !m.showQueue
		if m.showQueue {
			m.showTel = false
		}
		return m.resizeForPanels()

	case "ctrl+g":
		m.showTel = !m.showTel
		if m.showTel {
			m.showQueue = false
		}
		return m.resizeForPanels()

	case "pgup":
		m.viewport.ViewUp()
		return m, nil
	case "pgdown":
		m.viewport.ViewDown()
		return m, nil
	case "home":
		m.viewport.GotoTop()
		return m, nil
	case "end":
		m.viewport.GotoBottom()
		return m, nil
	}

	// Everything else is typing.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateCompletions()
	return m, cmd
}

// handleInterrupt implements the layered ctrl+c: drop the newest
// pending request, else clear the input, else quit.
func (m Model) handleInterrupt() (tea.Model, tea.Cmd) {
	if id, ok := m.dropRequest(""); ok {
		m.addNotice("dropped " + id)
		return m, nil
	}
	if m.input.Value() != "" {
		m.input.Reset()
		m.completion.Clear()
		m.popup.Clear()
		return m, nil
	}
	return m, tea.Quit
}

// cycleMode rotates direct > normal > complex.
func (m *Model) cycleMode() {
	switch m.chatMode {
	case api.ModeDirect:
		m.chatMode = api.ModeNormal
	case api.ModeNormal:
		m.chatMode = api.ModeComplex
	default:
		m.chatMode = api.ModeDirect
	}
}

// openDrawer shows request detail for the queue panel selection.
func (m Model) openDrawer() (tea.Model, tea.Cmd) {
	if m.queuePanel.SelectedTask() == nil {
		return m, nil
	}
	m.syncDrawer()
	m.showDrawer = true
	return m, nil
}

// syncDrawer points the drawer at the current selection.
func (m *Model) syncDrawer() {
	task := m.queuePanel.SelectedTask()
	if task == nil {
		return
	}
	m.drawer.SetTask(task)
	if clientID, ok := m.clientIDForRequest(task.RequestID); ok {
		if req, found := m.tracker.Get(clientID); found {
			m.drawer.SetRequest(&req)
		}
	} else {
		m.drawer.SetRequest(nil)
	}
	if m.latency != nil && task.RequestID != "" {
		for _, s := range m.latency.Recent(m.sess.SessionID(), 50) {
			if s.RequestID == task.RequestID {
				sample := s
				m.drawer.SetSample(&sample)
				return
			}
		}
	}
	m.drawer.SetSample(nil)
}

// resizeForPanels reflows the transcript after a panel toggle.
func (m Model) resizeForPanels() (tea.Model, tea.Cmd) {
	if m.width == 0 {
		return m, nil
	}
	return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
}
