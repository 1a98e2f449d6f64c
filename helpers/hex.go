package helpers

import (
	"encoding/hex"
	"strings"
)

func MustHex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

// Hex dump grouped by 4 bytes: "28302032 33332e37 09c7"
func FormatHex(b []byte) string {
	h := hex.EncodeToString(b)
	hlen := len(h)
	if hlen == 0 {
		return ""
	}
	ss := make([]string, 0, (hlen+7)/8)
	for lo := 0; lo < hlen; lo += 8 {
		hi := lo + 8
		if hi > hlen {
			hi = hlen
		}
		ss = append(ss, h[lo:hi])
	}
	return strings.Join(ss, " ")
}
