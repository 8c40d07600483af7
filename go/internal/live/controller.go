package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/eventup/live/go/clients/eventup_api"
	"github.com/eventup/live/go/internal/models"
	"github.com/eventup/live/go/internal/notify"
)

// API is the REST API consumed by the controller
type API interface {
	SnapshotAPI
	Vote(ctx context.Context, pollID, choiceID, token string) (models.Poll, error)
	CreatePoll(ctx context.Context, eventID, text string, choices []string, token string) (models.Poll, error)
	CreateQuestion(ctx context.Context, eventID, text, token string) (models.Question, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetRelatedEvents(ctx context.Context, categoryID, eventID string, page, limit int) (*models.EventPage, error)
}

// ControllerConfig holds configuration for an event view controller
type ControllerConfig struct {
	Connection   ConnectionConfig
	MergePolicy  MergePolicy
	RelatedLimit int
}

// DefaultControllerConfig returns default controller configuration
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Connection:   DefaultConnectionConfig(),
		MergePolicy:  MergeAppend,
		RelatedLimit: eventup_api.DefaultRelatedLimit,
	}
}

// VoteOutcome is the result of a vote submission
type VoteOutcome string

const (
	OutcomeRecorded        VoteOutcome = "recorded"
	OutcomeChanged         VoteOutcome = "changed"
	OutcomeAlreadySelected VoteOutcome = "already_selected"
	OutcomeInProgress      VoteOutcome = "in_progress"
	OutcomeRejected        VoteOutcome = "rejected"
	OutcomeFailed          VoteOutcome = "failed"
)

// User-facing texts
const (
	msgConnected        = "Connected to live updates!"
	msgConnectionFailed = "Live connection failed. Retrying..."
	msgExhausted        = "Max reconnection attempts reached. Please refresh the page."
	msgNoToken          = "No authentication token found. Please log in."
	msgVoteRecorded     = "Vote recorded successfully!"
	msgVoteChanged      = "Vote changed successfully!"
	msgAnswerSubmitted  = "Answer submitted successfully!"
)

// Controller owns the live state of one mounted event view. Every handler runs under
// mu; network calls are made outside it and their results are applied only if the view
// is still mounted under the same generation.
type Controller struct {
	mu sync.Mutex

	config    ControllerConfig
	api       API
	transport Transport
	creds     CredentialProvider
	notifier  notify.Notifier
	clock     clockwork.Clock

	loader  *SnapshotLoader
	pending *PendingTracker

	mounted bool
	gen     uint64
	state   State
	conn    *ConnectionManager
	status  string
	cancel  context.CancelFunc
}

// NewController creates an unmounted controller
func NewController(config ControllerConfig, api API, transport Transport, creds CredentialProvider, notifier notify.Notifier, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	if config.MergePolicy == "" {
		config.MergePolicy = MergeAppend
	}
	return &Controller{
		config:    config,
		api:       api,
		transport: transport,
		creds:     creds,
		notifier:  notifier,
		clock:     clock,
		loader:    NewSnapshotLoader(api, creds),
		pending:   NewPendingTracker(clock),
	}
}

// Mount opens the view for an event: it starts the live connection and loads the
// snapshot. Mounting the event that is already mounted is a no-op; mounting another
// event unmounts the current one first. A snapshot failure is returned but the view
// stays mounted in its error state.
func (c *Controller) Mount(ctx context.Context, eventID string) error {
	if eventID == "" {
		return &ValidationError{Reason: ReasonInvalidTarget, Message: "event id is required"}
	}

	c.mu.Lock()
	if c.mounted && c.state.EventID == eventID {
		c.mu.Unlock()
		return nil
	}
	if c.mounted {
		c.unmountLocked()
	}

	c.gen++
	gen := c.gen
	c.mounted = true
	c.state = newState(eventID)
	ticket := c.state.beginFetch()
	c.status = ""
	c.pending.Reset()

	// The connection outlives the Mount call; only Unmount ends it.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.conn = NewConnectionManager(c.config.Connection, c.transport, c.creds, &connectionListener{c: c, gen: gen}, c.clock)
	conn := c.conn
	c.mu.Unlock()

	log.Info().Str("event_id", eventID).Msg("mounting event view")

	conn.Connect(connCtx, eventID)
	return c.load(ctx, gen, eventID, ticket)
}

// Unmount tears the view down. The live connection is closed and any scheduled
// reconnect is cancelled before Unmount returns. Late results of requests started
// before the call are discarded.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	log.Info().Str("event_id", c.state.EventID).Msg("unmounting event view")
	c.unmountLocked()
}

func (c *Controller) unmountLocked() {
	c.gen++
	c.mounted = false
	if c.conn != nil {
		c.conn.Disconnect()
		c.conn = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending.Reset()
	c.state = State{}
	c.status = ""
}

// Reload fetches a fresh snapshot. On failure the previous collections are kept. Reloads
// may overlap each other and the Mount load; updates received while any of them is in
// flight are replayed over every snapshot, and a snapshot never replaces a newer one.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	ticket := c.state.beginFetch()
	c.mu.Unlock()

	return c.load(ctx, gen, eventID, ticket)
}

func (c *Controller) load(ctx context.Context, gen uint64, eventID string, ticket fetchTicket) error {
	snap, err := c.loader.Load(ctx, eventID)

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		log.Debug().Str("event_id", eventID).Msg("discarding snapshot for unmounted view")
		return ErrNotMounted
	}
	if err != nil {
		c.state.failLoad(ticket, err)
		c.mu.Unlock()

		log.Error().Err(err).Str("event_id", eventID).Msg("failed to load event snapshot")
		c.toast(eventID, notify.LevelError, "Failed to load polls, questions, or votes: "+userMessage(err))
		return fmt.Errorf("load snapshot for event %s: %w", eventID, err)
	}
	applied := c.state.applySnapshot(ticket, snap, c.config.MergePolicy)
	c.mu.Unlock()

	if !applied {
		log.Debug().Str("event_id", eventID).Msg("discarding snapshot superseded by a newer load")
		return nil
	}

	log.Debug().
		Str("event_id", eventID).
		Int("polls", len(snap.Polls)).
		Int("questions", len(snap.Questions)).
		Int("user_votes", len(snap.UserVotes)).
		Msg("event snapshot loaded")
	return nil
}

// LoadEvent fetches the event details and related events and works out whether the
// viewer created the event. Related events are optional; their failure is only reported.
func (c *Controller) LoadEvent(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	c.mu.Unlock()

	event, err := c.api.GetEvent(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to fetch event")
		c.toast(eventID, notify.LevelError, "Failed to load event details: "+userMessage(err))
		return fmt.Errorf("load event %s: %w", eventID, err)
	}

	var related *models.EventPage
	if categoryID := event.CategoryID(); categoryID != "" {
		related, err = c.api.GetRelatedEvents(ctx, categoryID, eventID, eventup_api.DefaultRelatedPage, c.config.RelatedLimit)
		if err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("failed to fetch related events")
			c.toast(eventID, notify.LevelError, "Failed to fetch related events: "+userMessage(err))
			related = nil
		}
	}

	isCreator := false
	if token := resolveToken(ctx, c.creds); token != "" && event.Organizer != nil {
		viewer, err := ViewerFromToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read viewer from access token")
		} else {
			if viewer.Expired(c.clock.Now()) {
				log.Warn().Str("user_id", viewer.UserID).Time("expires_at", viewer.ExpiresAt).Msg("access token has expired")
			}
			isCreator = viewer.UserID != "" && viewer.UserID == event.Organizer.ID
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCurrentLocked(gen) {
		return ErrNotMounted
	}
	c.state.Event = event
	c.state.Related = related
	c.state.IsCreator = isCreator
	c.state.Version++
	return nil
}

// Vote submits the viewer's choice for a poll. Invalid, redundant and duplicate
// submissions are answered locally without a request. The choice is recorded only once
// the server confirms it.
func (c *Controller) Vote(ctx context.Context, pollID, choiceID string) (VoteOutcome, error) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return OutcomeRejected, ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	c.mu.Unlock()

	token := resolveToken(ctx, c.creds)
	if token == "" {
		c.toast(eventID, notify.LevelError, "Please log in to vote.")
		return OutcomeRejected, ErrAuthMissing
	}
	if pollID == "" || choiceID == "" {
		c.toast(eventID, notify.LevelError, "Invalid question or choice selected.")
		return OutcomeRejected, &ValidationError{Reason: ReasonInvalidTarget, Message: "poll and choice are required"}
	}

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return OutcomeRejected, ErrNotMounted
	}
	previous := c.state.UserVotes[pollID]
	if previous == choiceID {
		c.mu.Unlock()
		c.toast(eventID, notify.LevelInfo, "This choice is already selected.")
		return OutcomeAlreadySelected, nil
	}
	if !c.pending.Mark(ActionVote, pollID, previous) {
		c.mu.Unlock()
		c.toast(eventID, notify.LevelInfo, "Your vote is already being submitted.")
		return OutcomeInProgress, nil
	}
	c.state.Version++
	c.mu.Unlock()

	log.Debug().
		Str("event_id", eventID).
		Str("poll_id", pollID).
		Str("choice_id", choiceID).
		Msg("submitting vote")

	poll, err := c.api.Vote(ctx, pollID, choiceID, token)

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return OutcomeFailed, ErrNotMounted
	}
	if err != nil {
		c.pending.ClearPending(ActionVote, pollID)
		c.state.Version++
		c.mu.Unlock()

		log.Error().Err(err).Str("poll_id", pollID).Msg("failed to submit vote")
		c.toast(eventID, notify.LevelError, "Failed to submit vote: "+userMessage(err))
		return OutcomeFailed, fmt.Errorf("vote on poll %s: %w", pollID, err)
	}

	// A push for this poll may have confirmed the vote first. Its tally is at least as
	// new as the response, so the response is merged only while still pending.
	_, acknowledge := c.pending.Clear(ActionVote, pollID)
	if acknowledge && poll.ID == pollID {
		c.state.applyPoll(c.config.MergePolicy, poll)
	}
	c.state.recordVote(pollID, choiceID)
	c.mu.Unlock()

	outcome := OutcomeRecorded
	if previous != "" {
		outcome = OutcomeChanged
	}
	if acknowledge {
		c.toast(eventID, notify.LevelSuccess, voteMessage(previous))
	}
	return outcome, nil
}

// SubmitAnswer sends an answer over the live connection and then refreshes the
// questions. The answer stays pending until its qna_update or the refresh arrives.
func (c *Controller) SubmitAnswer(ctx context.Context, questionID, text string) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	conn := c.conn
	c.mu.Unlock()

	switch conn.State() {
	case StateOpen:
	case StateExhausted:
		c.toast(eventID, notify.LevelError, msgExhausted)
		return ErrConnectionExhausted
	default:
		c.toast(eventID, notify.LevelError, "Cannot submit answer: live connection is not open.")
		return ErrNotConnected
	}
	token := resolveToken(ctx, c.creds)
	if token == "" {
		c.toast(eventID, notify.LevelError, "Please log in to submit an answer.")
		return ErrAuthMissing
	}
	if questionID == "" {
		c.toast(eventID, notify.LevelError, "Invalid question selected.")
		return &ValidationError{Reason: ReasonInvalidTarget, Message: "question is required"}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.toast(eventID, notify.LevelError, "Please enter an answer.")
		return &ValidationError{Reason: ReasonEmptyAnswer, Message: "answer text is required"}
	}

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return ErrNotMounted
	}
	if !c.pending.MarkPending(ActionAnswer, questionID) {
		c.mu.Unlock()
		c.toast(eventID, notify.LevelInfo, "Your answer is already being submitted.")
		return &ValidationError{Reason: ReasonInProgress, Message: "an answer to this question is already pending"}
	}
	c.state.Version++
	c.mu.Unlock()

	if err := conn.Send(NewAnswerMessage(questionID, text)); err != nil {
		c.mu.Lock()
		if c.isCurrentLocked(gen) && c.pending.ClearPending(ActionAnswer, questionID) {
			c.state.Version++
		}
		c.mu.Unlock()
		log.Error().Err(err).Str("question_id", questionID).Msg("failed to send answer")
		c.toast(eventID, notify.LevelError, "Failed to submit answer: "+userMessage(err))
		return fmt.Errorf("send answer to question %s: %w", questionID, err)
	}

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return ErrNotMounted
	}
	ticket := c.state.beginFetch()
	c.mu.Unlock()

	questions, err := c.api.ListQuestions(ctx, eventID, token)

	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return ErrNotMounted
	}
	if err != nil {
		c.state.endFetch()
		c.pending.ClearPending(ActionAnswer, questionID)
		c.state.Version++
		c.mu.Unlock()

		log.Error().Err(err).Str("question_id", questionID).Msg("failed to refresh questions after answer")
		c.toast(eventID, notify.LevelError, "Failed to submit answer: "+userMessage(err))
		return fmt.Errorf("refresh questions: %w", err)
	}
	c.state.refreshQuestions(ticket, questions, c.config.MergePolicy)
	acknowledge := c.pending.ClearPending(ActionAnswer, questionID)
	c.mu.Unlock()

	if acknowledge {
		c.toast(eventID, notify.LevelSuccess, msgAnswerSubmitted)
	}
	return nil
}

// CreatePoll creates a poll on the mounted event
func (c *Controller) CreatePoll(ctx context.Context, text string, choices []string) (models.Poll, error) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return models.Poll{}, ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	c.mu.Unlock()

	token := resolveToken(ctx, c.creds)
	if token == "" {
		c.toast(eventID, notify.LevelError, "Please log in to create a poll.")
		return models.Poll{}, ErrAuthMissing
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Poll{}, &ValidationError{Reason: ReasonInvalidTarget, Message: "poll question is required"}
	}
	trimmed := make([]string, 0, len(choices))
	for _, choice := range choices {
		choice = strings.TrimSpace(choice)
		if choice == "" {
			return models.Poll{}, &ValidationError{Reason: ReasonInvalidTarget, Message: "option is required"}
		}
		trimmed = append(trimmed, choice)
	}
	if len(trimmed) < 2 {
		return models.Poll{}, &ValidationError{Reason: ReasonInvalidTarget, Message: "at least two options are required"}
	}

	poll, err := c.api.CreatePoll(ctx, eventID, text, trimmed, token)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to create poll")
		c.toast(eventID, notify.LevelError, "Failed to create poll: "+userMessage(err))
		return models.Poll{}, fmt.Errorf("create poll: %w", err)
	}

	c.mu.Lock()
	if c.isCurrentLocked(gen) && poll.ID != "" {
		c.state.applyPoll(c.config.MergePolicy, poll)
	}
	c.mu.Unlock()

	c.toast(eventID, notify.LevelSuccess, "Poll created successfully!")
	return poll, nil
}

// CreateQuestion creates a Q&A question on the mounted event
func (c *Controller) CreateQuestion(ctx context.Context, text string) (models.Question, error) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return models.Question{}, ErrNotMounted
	}
	gen := c.gen
	eventID := c.state.EventID
	c.mu.Unlock()

	token := resolveToken(ctx, c.creds)
	if token == "" {
		c.toast(eventID, notify.LevelError, "Please log in to create a question.")
		return models.Question{}, ErrAuthMissing
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Question{}, &ValidationError{Reason: ReasonInvalidTarget, Message: "question text is required"}
	}

	question, err := c.api.CreateQuestion(ctx, eventID, text, token)
	if err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("failed to create question")
		c.toast(eventID, notify.LevelError, "Failed to create question: "+userMessage(err))
		return models.Question{}, fmt.Errorf("create question: %w", err)
	}

	c.mu.Lock()
	if c.isCurrentLocked(gen) && question.ID != "" {
		c.state.applyQuestion(c.config.MergePolicy, question)
	}
	c.mu.Unlock()

	c.toast(eventID, notify.LevelSuccess, "Question created successfully!")
	return question, nil
}

// View returns a copy of the current view state
func (c *Controller) View() View {
	c.mu.Lock()
	v := c.state.view()
	v.Status = c.status
	conn := c.conn
	c.mu.Unlock()

	v.PendingVotes = c.pending.Pending(ActionVote)
	v.PendingAnswers = c.pending.Pending(ActionAnswer)
	v.Connection = StateDisconnected
	if conn != nil {
		v.Connection = conn.State()
	}
	return v
}

// IsPending reports whether an action of the given kind is awaiting confirmation
func (c *Controller) IsPending(kind ActionKind, id string) bool {
	return c.pending.IsPending(kind, id)
}

func (c *Controller) isCurrentLocked(gen uint64) bool {
	return c.mounted && c.gen == gen
}

func (c *Controller) toast(eventID string, level notify.Level, message string) {
	c.notifier.Notify(notify.New(eventID, notify.KindToast, level, message))
}

// setStatus updates the persistent status line of generation gen. An empty message
// clears it.
func (c *Controller) setStatus(gen uint64, level notify.Level, message string) {
	c.mu.Lock()
	if !c.isCurrentLocked(gen) || c.status == message {
		c.mu.Unlock()
		return
	}
	c.status = message
	eventID := c.state.EventID
	c.mu.Unlock()

	if message == "" {
		return
	}
	c.notifier.Notify(notify.New(eventID, notify.KindStatus, level, message))
}

// handleMessage applies one inbound live message
func (c *Controller) handleMessage(gen uint64, msg Message) {
	c.mu.Lock()
	if !c.isCurrentLocked(gen) {
		c.mu.Unlock()
		return
	}
	eventID := c.state.EventID

	switch m := msg.(type) {
	case PollUpdate:
		c.state.applyPoll(c.config.MergePolicy, m.Poll)
		entry, acknowledge := c.pending.Clear(ActionVote, m.Poll.ID)
		c.mu.Unlock()
		if acknowledge {
			c.toast(eventID, notify.LevelSuccess, voteMessage(entry.Detail))
		}

	case QnAUpdate:
		c.state.applyQuestion(c.config.MergePolicy, m.Question)
		acknowledge := c.pending.ClearPending(ActionAnswer, m.Question.ID)
		c.mu.Unlock()
		if acknowledge {
			c.toast(eventID, notify.LevelSuccess, msgAnswerSubmitted)
		}

	case ErrorMessage:
		if m.PollID != "" && c.pending.ClearPending(ActionVote, m.PollID) {
			c.state.Version++
		}
		c.mu.Unlock()
		log.Warn().Str("event_id", eventID).Str("poll_id", m.PollID).Msg(m.Message)
		c.toast(eventID, notify.LevelError, "Error: "+m.Message)

	default:
		c.mu.Unlock()
	}
}

func voteMessage(previousChoice string) string {
	if previousChoice != "" {
		return msgVoteChanged
	}
	return msgVoteRecorded
}

// connectionListener routes connection signals of one mount to the controller
type connectionListener struct {
	c   *Controller
	gen uint64
}

func (l *connectionListener) OnOpened() {
	l.c.setStatus(l.gen, notify.LevelSuccess, "")
	l.c.toastCurrent(l.gen, notify.LevelSuccess, msgConnected)
}

func (l *connectionListener) OnMessage(payload []byte) {
	msg, err := ParseMessage(payload)
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			log.Debug().Err(err).Msg("ignoring live message")
		} else {
			log.Warn().Err(err).Msg("failed to parse live message")
		}
		return
	}
	l.c.handleMessage(l.gen, msg)
}

func (l *connectionListener) OnError(err error) {
	if l.retrying() {
		l.c.toastCurrent(l.gen, notify.LevelError, msgConnectionFailed)
	}
}

func (l *connectionListener) OnClosed(code int) {
	if l.retrying() {
		msg := fmt.Sprintf("Live connection closed (code: %d). Retrying in %s...", code, l.c.config.Connection.Retry.Delay)
		l.c.toastCurrent(l.gen, notify.LevelError, msg)
	}
}

func (l *connectionListener) OnRetryScheduled(attempt int, delay time.Duration) {
	msg := fmt.Sprintf("Reconnecting in %s (attempt %d of %d)...", delay, attempt, l.c.config.Connection.Retry.MaxAttempts)
	l.c.setStatus(l.gen, notify.LevelError, msg)
}

func (l *connectionListener) OnExhausted() {
	l.c.setStatus(l.gen, notify.LevelError, msgExhausted)
	l.c.toastCurrent(l.gen, notify.LevelError, msgExhausted)
}

func (l *connectionListener) OnAuthMissing() {
	l.c.toastCurrent(l.gen, notify.LevelError, msgNoToken)
}

func (l *connectionListener) retrying() bool {
	l.c.mu.Lock()
	conn := l.c.conn
	current := l.c.isCurrentLocked(l.gen)
	l.c.mu.Unlock()
	return current && conn != nil && conn.State() == StateRetrying
}

// toastCurrent emits a toast only if generation gen is still mounted
func (c *Controller) toastCurrent(gen uint64, level notify.Level, message string) {
	c.mu.Lock()
	current := c.isCurrentLocked(gen)
	eventID := c.state.EventID
	c.mu.Unlock()
	if current {
		c.toast(eventID, level, message)
	}
}
