package session

import (
	"github.com/manu-0990/motion/internal/types"
)

// transcript is the ordered, append-only message log backing a session.
// Entities are never removed or reordered; approval and rejection mutate
// fields of an existing entity in place. The owning Controller serializes
// all access, so transcript itself carries no lock.
type transcript struct {
	msgs []types.Message
}

func newTranscript() *transcript {
	return &transcript{}
}

// append adds one message to the end of the log.
func (t *transcript) append(m types.Message) {
	t.msgs = append(t.msgs, m)
}

// updateByID applies patch to the unique message whose ID matches.
// It reports whether a match was found; with no match the log is untouched.
func (t *transcript) updateByID(id string, patch func(*types.Message)) bool {
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			patch(&t.msgs[i])
			return true
		}
	}
	return false
}

// replace swaps the whole log for a freshly fetched history.
func (t *transcript) replace(msgs []types.Message) {
	t.msgs = append(t.msgs[:0:0], msgs...)
}

// snapshot returns a copy of the log in append order.
func (t *transcript) snapshot() []types.Message {
	out := make([]types.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *transcript) len() int {
	return len(t.msgs)
}
