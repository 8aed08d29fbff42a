package agent

import "errors"

var (
	// ErrEmptyBrief is returned when the brief-writing step yields an empty
	// research brief.
	ErrEmptyBrief = errors.New("empty research brief")
	// ErrEmptyQuestion is returned when the clarification step asks for more
	// detail without a question.
	ErrEmptyQuestion = errors.New("empty clarifying question")
	// ErrEmptyVerification is returned when the clarification step proceeds
	// without a verification message.
	ErrEmptyVerification = errors.New("empty verification message")
	// ErrEmptyTopic is returned when a delegation call carries no research topic.
	ErrEmptyTopic = errors.New("empty research topic")
)
