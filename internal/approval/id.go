package approval

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates an approval id in the spec §6 format:
// "approval-<base36(epochMs)>-<>=8 base36 random chars>". This deliberately
// does not use google/uuid (the teacher's escalation.Manager convention) —
// the wire format is fixed by the spec.
func NewID(nowMs int64) string {
	var b strings.Builder
	b.WriteString("approval-")
	b.WriteString(strconv.FormatInt(nowMs, 36))
	b.WriteByte('-')
	b.WriteString(randomBase36(8))
	return b.String()
}

func randomBase36(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = '0'
			continue
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out)
}

// Trim normalizes an externally-supplied id per spec §6: IDs are trimmed on
// every external input; internal storage uses the trimmed form verbatim.
func Trim(id string) string {
	return strings.TrimSpace(id)
}
