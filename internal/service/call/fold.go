package call

import (
	"context"
	"errors"
	"strings"
	"sync"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
)

// ErrCallNotEnded is returned when the stream stops before an Ended event.
var ErrCallNotEnded = errors.New("call stream closed before the call ended")

// Fold consumes sub in arrival order, keeping only final transcript turns,
// and returns once the call has ended. Events after the first Ended are
// never read. If the stream closes early the turns seen so far are returned
// together with ErrCallNotEnded.
func Fold(ctx context.Context, sub Subscription) (model.Transcript, error) {
	transcript := model.Transcript{}
	events := sub.Events()

	for {
		select {
		case <-ctx.Done():
			return transcript, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return transcript, ErrCallNotEnded
			}
			switch ev.Kind {
			case KindTranscriptFinal:
				if strings.TrimSpace(ev.Text) == "" {
					continue
				}
				transcript = append(transcript, model.Turn{Role: ev.Role, Text: ev.Text})
			case KindEnded:
				return transcript, nil
			}
		}
	}
}

// Attacher stores a report built from a finished transcript.
type Attacher interface {
	Attach(ctx context.Context, caller, sessionID string, transcript model.Transcript) (*model.Report, error)
}

// Call ties one voice call to its session.
type Call struct {
	source    Source
	attacher  Attacher
	caller    string
	sessionID string

	once   sync.Once
	report *model.Report
	err    error
}

// NewCall prepares a call for sessionID on behalf of caller.
func NewCall(source Source, attacher Attacher, caller, sessionID string) *Call {
	return &Call{
		source:    source,
		attacher:  attacher,
		caller:    caller,
		sessionID: sessionID,
	}
}

// Run folds the call and attaches the report. The attachment is attempted
// at most once per Call; later invocations return the first outcome.
func (c *Call) Run(ctx context.Context) (*model.Report, error) {
	c.once.Do(func() {
		c.report, c.err = c.run(ctx)
	})
	return c.report, c.err
}

func (c *Call) run(ctx context.Context) (*model.Report, error) {
	sub, err := c.source.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	transcript, err := Fold(ctx, sub)
	if err != nil {
		return nil, err
	}
	return c.attacher.Attach(ctx, c.caller, c.sessionID, transcript)
}
