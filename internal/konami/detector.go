package konami

import "sync"

// DefaultSequence is the classic unlock sequence, key names as delivered by
// the browser: up up down down left right left right b a.
var DefaultSequence = []string{
	"ArrowUp", "ArrowUp", "ArrowDown", "ArrowDown",
	"ArrowLeft", "ArrowRight", "ArrowLeft", "ArrowRight",
	"b", "a",
}

// Detector is a prefix-matching state machine over the key sequence. On a
// mismatch the position restarts at 1 when the key equals the sequence start,
// otherwise at 0, so overlapping attempts still trigger.
type Detector struct {
	mu       sync.Mutex
	sequence []string
	pos      int
}

func NewDetector(sequence []string) *Detector {
	if len(sequence) == 0 {
		sequence = DefaultSequence
	}
	return &Detector{sequence: sequence}
}

// Press feeds one key and reports whether the sequence just completed.
// Completion resets the detector for the next round.
func (d *Detector) Press(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if key == d.sequence[d.pos] {
		d.pos++
		if d.pos == len(d.sequence) {
			d.pos = 0
			return true
		}
		return false
	}

	if key == d.sequence[0] {
		d.pos = 1
	} else {
		d.pos = 0
	}
	return false
}
