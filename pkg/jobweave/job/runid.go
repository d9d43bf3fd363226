package job

import (
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID generates a run id in the "run_<unix-ms>_<9-char base36>"
// format. Uniqueness is only required within a single process
// lifetime, so math/rand/v2 is sufficient — no cryptographic guarantee
// is needed here.
func NewRunID() string {
	var b strings.Builder
	b.WriteString("run_")
	b.WriteString(itoa(time.Now().UnixMilli()))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36Alphabet[rand.IntN(len(base36Alphabet))])
	}
	return b.String()
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// anonymousJobCounter numbers jobs declared without an explicit id/name,
// producing ids like "anonymous-job-1". Process-wide, like the
// Registry it feeds.
var anonymousJobCounter atomic.Int64

// NextAnonymousID returns the next "anonymous-job-<N>" id.
func NextAnonymousID() string {
	n := anonymousJobCounter.Add(1)
	return "anonymous-job-" + itoa(n)
}

// ResetAnonymousCounter resets the anonymous job counter to zero. Tests
// use this to get deterministic ids across cases, per the teacher's
// "tests require ... a way to reset the anonymous-job counter" note.
func ResetAnonymousCounter() {
	anonymousJobCounter.Store(0)
}
