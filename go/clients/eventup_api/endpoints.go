package eventup_api

const (
	// API Endpoints. Path parameters are escaped before formatting.
	PollsEndpoint         = "/polls/%s/polls/"
	VoteEndpoint          = "/polls/polls/%s/vote/"
	UserVotesEndpoint     = "/polls/user-votes/"
	QuestionsEndpoint     = "/qns/%s/questions/"
	EventEndpoint         = "/events/%s/event/"
	RelatedEventsEndpoint = "/events/related/"

	// Related events defaults
	DefaultRelatedPage  = 1
	DefaultRelatedLimit = 6
)
