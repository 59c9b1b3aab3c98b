package vision

import (
	"sync"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/monitoring"
)

// Publisher is the pipeline's frame sink: it annotates each outgoing
// frame and fans the encoded JPEG out to stream subscribers. A slow
// subscriber drops frames rather than stalling the pipeline.
type Publisher struct {
	annotator *Annotator

	mu     sync.Mutex
	latest []byte
	subs   map[chan []byte]struct{}
}

func NewPublisher(annotator *Annotator) *Publisher {
	return &Publisher{
		annotator: annotator,
		subs:      make(map[chan []byte]struct{}),
	}
}

// Publish implements anpr.FrameSink. Non Mat-backed frames are ignored.
func (p *Publisher) Publish(frame anpr.Frame, tracks []anpr.TrackSnapshot) {
	mf, ok := frame.(*MatFrame)
	if !ok {
		return
	}
	if p.annotator != nil {
		p.annotator.Draw(mf, tracks)
	}

	data, err := mf.EncodeJPEG()
	if err != nil {
		monitoring.Logf("vision: failed to encode stream frame: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = data
	for ch := range p.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// Latest returns the most recent encoded frame, or nil before the
// first publish.
func (p *Publisher) Latest() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Subscribe registers a stream consumer. The returned cancel func must
// be called when the consumer goes away.
func (p *Publisher) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
	return ch, cancel
}
