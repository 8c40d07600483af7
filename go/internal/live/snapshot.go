package live

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eventup/live/go/internal/models"
)

// SnapshotAPI is the part of the REST API the snapshot loader reads
type SnapshotAPI interface {
	ListPolls(ctx context.Context, eventID, token string) ([]models.Poll, error)
	ListQuestions(ctx context.Context, eventID, token string) ([]models.Question, error)
	ListUserVotes(ctx context.Context, token string) ([]models.UserVote, error)
}

// Snapshot is the initial state of an event view
type Snapshot struct {
	Polls     []models.Poll
	Questions []models.Question
	UserVotes models.UserVoteMap
}

// SnapshotLoader fetches polls, questions and the viewer's votes for an event
type SnapshotLoader struct {
	api   SnapshotAPI
	creds CredentialProvider
}

// NewSnapshotLoader creates a snapshot loader
func NewSnapshotLoader(api SnapshotAPI, creds CredentialProvider) *SnapshotLoader {
	return &SnapshotLoader{api: api, creds: creds}
}

// Load fetches the three collections concurrently. It returns either a complete snapshot
// or the first error; partial results are never returned. Without a token the viewer's
// votes are not requested and the vote map is empty.
func (l *SnapshotLoader) Load(ctx context.Context, eventID string) (*Snapshot, error) {
	token := resolveToken(ctx, l.creds)

	var (
		polls     []models.Poll
		questions []models.Question
		votes     []models.UserVote
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		polls, err = l.api.ListPolls(gctx, eventID, token)
		if err != nil {
			return fmt.Errorf("failed to fetch polls: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		questions, err = l.api.ListQuestions(gctx, eventID, token)
		if err != nil {
			return fmt.Errorf("failed to fetch questions: %w", err)
		}
		return nil
	})

	if token != "" {
		g.Go(func() error {
			var err error
			votes, err = l.api.ListUserVotes(gctx, token)
			if err != nil {
				return fmt.Errorf("failed to fetch user votes: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if polls == nil {
		polls = []models.Poll{}
	}
	if questions == nil {
		questions = []models.Question{}
	}

	return &Snapshot{
		Polls:     polls,
		Questions: questions,
		UserVotes: models.NewUserVoteMap(votes),
	}, nil
}
