// Package segment turns a stream of classified PCM frames into utterances.
//
// It holds the silence classifier, the threshold value object and the
// silence-gated segmentation state machine. Nothing in here touches a device
// or the network; the capture loop in package audio drives it.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out utterance IDs. Safe for concurrent use.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", sessionId, n)
}
