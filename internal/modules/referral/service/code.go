package service

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const codeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateCode builds a referral code from the username prefix, a base-36
// timestamp, and 4 random characters: e.g. "JANEMB5X2K019AF7". Uppercase
// alphanumeric only.
func generateCode(username string) string {
	var prefix strings.Builder
	for _, r := range strings.ToUpper(username) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			prefix.WriteRune(r)
			if prefix.Len() >= 4 {
				break
			}
		}
	}
	if prefix.Len() == 0 {
		prefix.WriteString("USER")
	}

	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	return prefix.String() + ts + randomBase36(4)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back to a
		// timestamp-derived suffix so code generation still succeeds.
		ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
		for len(ts) < n {
			ts += "0"
		}
		return ts[len(ts)-n:]
	}

	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(out)
}
