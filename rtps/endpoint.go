package rtps

import (
	"sync"

	"github.com/fathomdds/rtps/wire"
)

// ReliabilityKind selects best-effort or reliable delivery.
type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

// TopicKind distinguishes keyed (instance-bearing) topics from
// keyless ones.
type TopicKind int

const (
	NoKey TopicKind = iota
	WithKey
)

// TopicData names what an endpoint publishes or subscribes to.
type TopicData struct {
	TopicName   string
	TypeName    string
	Reliability ReliabilityKind
	TopicKind   TopicKind
}

// SampleView is what a reader's registered callback sees.
type SampleView struct {
	WriterGUID     wire.GUID
	SequenceNumber wire.SequenceNumber
	Payload        []byte
}

// SampleCallback is invoked synchronously on the dispatcher's reader
// goroutine: it must be non-blocking and must not call back into the
// reader's own API.
type SampleCallback func(SampleView)

// endpointBase is the common state every endpoint variant embeds:
// identity, topic, and the mutex guarding history, proxy list, and
// reliability counters together.
type endpointBase struct {
	mu          sync.Mutex
	guid        wire.GUID
	topic       TopicData
	participant *Participant
}

func (e *endpointBase) GUID() wire.GUID  { return e.guid }
func (e *endpointBase) Topic() TopicData { return e.topic }
