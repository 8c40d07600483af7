package live

import (
	"github.com/eventup/live/go/internal/models"
)

// State is the versioned in-memory state of one mounted event view. Every applied
// mutation bumps Version. It is owned by the Controller and only mutated under its lock.
type State struct {
	EventID   string
	Version   uint64
	Loaded    bool
	LoadError string

	Polls     []models.Poll
	Questions []models.Question
	UserVotes models.UserVoteMap

	Event     *models.Event
	Related   *models.EventPage
	IsCreator bool

	// Fetches of whole collections in flight, and the updates applied meanwhile. Each
	// update is stamped with seq; a fetch replays the updates stamped after it started
	// so a slower response cannot roll back a newer push or confirmed vote.
	seq           uint64
	inFlight      int
	since         []stateUpdate
	snapshotFrom  uint64
	questionsFrom uint64
}

// fetchTicket marks the start of a collection fetch
type fetchTicket struct {
	from uint64
}

// stateUpdate is one incremental update recorded while a fetch is in flight
type stateUpdate struct {
	seq      uint64
	poll     *models.Poll
	question *models.Question
	pollID   string
	choiceID string
}

func newState(eventID string) State {
	return State{
		EventID:   eventID,
		Polls:     []models.Poll{},
		Questions: []models.Question{},
		UserVotes: models.UserVoteMap{},
	}
}

// beginFetch starts recording updates that must survive the incoming response
func (s *State) beginFetch() fetchTicket {
	s.inFlight++
	return fetchTicket{from: s.seq}
}

// endFetch drops the recorded updates once no fetch is left in flight
func (s *State) endFetch() {
	if s.inFlight > 0 {
		s.inFlight--
	}
	if s.inFlight == 0 {
		s.since = nil
	}
}

func (s *State) record(u stateUpdate) {
	s.seq++
	if s.inFlight == 0 {
		return
	}
	u.seq = s.seq
	s.since = append(s.since, u)
}

// replay reapplies the updates recorded after t started
func (s *State) replay(t fetchTicket, policy MergePolicy, polls, questions, votes bool) {
	for _, u := range s.since {
		if u.seq <= t.from {
			continue
		}
		switch {
		case u.poll != nil && polls:
			s.Polls = policy.MergePoll(s.Polls, *u.poll)
		case u.question != nil && questions:
			s.Questions = policy.MergeQuestion(s.Questions, *u.question)
		case u.pollID != "" && votes:
			s.UserVotes[u.pollID] = u.choiceID
		}
	}
}

// failLoad keeps the previous collections. A failure of a load that was overtaken by
// a newer applied snapshot is not reported on the view.
func (s *State) failLoad(t fetchTicket, err error) {
	defer s.endFetch()
	if t.from < s.snapshotFrom {
		return
	}
	s.LoadError = err.Error()
	s.Version++
}

// applySnapshot replaces the collections and replays updates seen during the load. It
// reports false when a snapshot fetched later has already been applied. Questions
// refreshed after the load started are kept.
func (s *State) applySnapshot(t fetchTicket, snap *Snapshot, policy MergePolicy) bool {
	defer s.endFetch()
	if t.from < s.snapshotFrom {
		return false
	}
	s.snapshotFrom = t.from
	s.Polls = snap.Polls
	s.UserVotes = snap.UserVotes.Clone()
	if s.UserVotes == nil {
		s.UserVotes = models.UserVoteMap{}
	}
	questions := t.from >= s.questionsFrom
	if questions {
		s.questionsFrom = t.from
		s.Questions = snap.Questions
	}
	s.replay(t, policy, true, questions, true)

	s.Loaded = true
	s.LoadError = ""
	s.Version++
	return true
}

// refreshQuestions swaps in a freshly fetched question list and replays the question
// updates seen during the fetch. It reports false when a later fetch already won.
func (s *State) refreshQuestions(t fetchTicket, questions []models.Question, policy MergePolicy) bool {
	defer s.endFetch()
	if t.from < s.questionsFrom {
		return false
	}
	s.questionsFrom = t.from
	if questions == nil {
		questions = []models.Question{}
	}
	s.Questions = questions
	s.replay(t, policy, false, true, false)
	s.Version++
	return true
}

func (s *State) applyPoll(policy MergePolicy, poll models.Poll) {
	s.Polls = policy.MergePoll(s.Polls, poll)
	s.record(stateUpdate{poll: &poll})
	s.Version++
}

func (s *State) applyQuestion(policy MergePolicy, question models.Question) {
	s.Questions = policy.MergeQuestion(s.Questions, question)
	s.record(stateUpdate{question: &question})
	s.Version++
}

// recordVote stores a server-confirmed choice
func (s *State) recordVote(pollID, choiceID string) {
	if s.UserVotes == nil {
		s.UserVotes = models.UserVoteMap{}
	}
	s.UserVotes[pollID] = choiceID
	s.record(stateUpdate{pollID: pollID, choiceID: choiceID})
	s.Version++
}

// View is a read-only copy of the view state for the rendering layer
type View struct {
	EventID        string             `json:"event_id"`
	Version        uint64             `json:"version"`
	Loaded         bool               `json:"loaded"`
	LoadError      string             `json:"load_error,omitempty"`
	Event          *models.Event      `json:"event,omitempty"`
	Related        *models.EventPage  `json:"related,omitempty"`
	IsCreator      bool               `json:"is_creator"`
	Polls          []models.Poll      `json:"polls"`
	Questions      []models.Question  `json:"questions"`
	UserVotes      models.UserVoteMap `json:"user_votes"`
	PendingVotes   []string           `json:"pending_votes"`
	PendingAnswers []string           `json:"pending_answers"`
	Connection     ConnectionState    `json:"connection"`
	Status         string             `json:"status,omitempty"`
}

// CanVote reports whether the vote controls of a poll are enabled
func (v View) CanVote(pollID string) bool {
	for _, id := range v.PendingVotes {
		if id == pollID {
			return false
		}
	}
	return true
}

// Poll returns the poll with the given ID
func (v View) Poll(pollID string) (models.Poll, bool) {
	for _, p := range v.Polls {
		if p.ID == pollID {
			return p, true
		}
	}
	return models.Poll{}, false
}

// Question returns the question with the given ID
func (v View) Question(questionID string) (models.Question, bool) {
	for _, q := range v.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return models.Question{}, false
}

func (s *State) view() View {
	v := View{
		EventID:   s.EventID,
		Version:   s.Version,
		Loaded:    s.Loaded,
		LoadError: s.LoadError,
		Event:     s.Event,
		Related:   s.Related,
		IsCreator: s.IsCreator,
		Polls:     make([]models.Poll, len(s.Polls)),
		Questions: make([]models.Question, len(s.Questions)),
		UserVotes: s.UserVotes.Clone(),
	}
	for i, p := range s.Polls {
		p.Choices = append([]models.Choice(nil), p.Choices...)
		v.Polls[i] = p
	}
	for i, q := range s.Questions {
		q.Answers = append([]models.Answer(nil), q.Answers...)
		v.Questions[i] = q
	}
	return v
}
