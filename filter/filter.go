package filter

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hupe1980/nxgraph/action"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// Filter is one processing unit.
type Filter interface {
	// Name is the stable machine name, e.g. "ScalarSegmentFeatures".
	Name() string
	UUID() uuid.UUID
	HumanName() string
	Parameters() Parameters

	// Preflight returns the structural changes Execute relies on. It must
	// not touch element data.
	Preflight(ds *graph.DataStructure, args Arguments) result.Result[action.Batch]
	// Execute runs after the preflight batch was applied in Execute mode.
	Execute(ctx context.Context, ds *graph.DataStructure, args Arguments, messages MessageHandler, cancel *CancelFlag) result.Result[struct{}]
}

// namespace seeds the name based filter UUIDs.
var namespace = uuid.MustParse("6c1e7c4a-0f59-4b7e-9a63-5d3f2a1b8c90")

// NewUUID derives a stable UUID from a filter name.
func NewUUID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name))
}

// CancelFlag is a cooperative cancellation flag. A nil flag is never set.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel sets the flag.
func (c *CancelFlag) Cancel() {
	if c != nil {
		c.v.Store(true)
	}
}

// Canceled reports whether Cancel was called.
func (c *CancelFlag) Canceled() bool { return c != nil && c.v.Load() }

// MessageType classifies messages.
type MessageType uint8

const (
	MessageInfo MessageType = iota
	MessageProgress
	MessageWarning
)

func (t MessageType) String() string {
	switch t {
	case MessageProgress:
		return "progress"
	case MessageWarning:
		return "warning"
	default:
		return "info"
	}
}

// Message is a status update from a running filter.
type Message struct {
	Type MessageType
	Text string
}

// MessageHandler receives messages. A nil handler drops them.
type MessageHandler func(Message)

func (h MessageHandler) send(t MessageType, text string) {
	if h != nil {
		h(Message{Type: t, Text: text})
	}
}

func (h MessageHandler) Info(text string)     { h.send(MessageInfo, text) }
func (h MessageHandler) Progress(text string) { h.send(MessageProgress, text) }
func (h MessageHandler) Warn(text string)     { h.send(MessageWarning, text) }

// ProgressFunc returns h.Progress as a plain function, or nil.
func (h MessageHandler) ProgressFunc() func(string) {
	if h == nil {
		return nil
	}
	return h.Progress
}
