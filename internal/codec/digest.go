package codec

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DigestEntry is one algorithm's digest of a byte sequence.
type DigestEntry struct {
	Algorithm string `json:"algorithm"`
	Hex       string `json:"hex"`
}

type digestAlgorithm struct {
	name string
	new  func() hash.Hash
}

// digestAlgorithms lists the algorithms in report order.
var digestAlgorithms = []digestAlgorithm{
	{"CRC32", func() hash.Hash { return crc32.NewIEEE() }},
	{"MD5", md5.New},
	{"SHA-1", sha1.New},
	{"SHA-256", sha256.New},
	{"SHA3-256", sha3.New256},
}

// DigestAlgorithms returns the algorithm names Digest reports, in order.
func DigestAlgorithms() []string {
	names := make([]string, len(digestAlgorithms))
	for i, a := range digestAlgorithms {
		names[i] = a.name
	}
	return names
}

// Digest computes every supported digest of data. Values are upper-case
// hex; CRC32 is zero-padded to eight digits.
func Digest(data []byte) []DigestEntry {
	out := make([]DigestEntry, 0, len(digestAlgorithms))
	for _, a := range digestAlgorithms {
		h := a.new()
		if h == nil {
			panic(fmt.Sprintf("codec: digest algorithm %s unavailable", a.name))
		}
		h.Write(data)
		out = append(out, DigestEntry{
			Algorithm: a.name,
			Hex:       strings.ToUpper(hex.EncodeToString(h.Sum(nil))),
		})
	}
	return out
}

// Summary renders entries as aligned "NAME = HEX" lines.
func Summary(entries []DigestEntry) string {
	width := 0
	for _, e := range entries {
		if len(e.Algorithm) > width {
			width = len(e.Algorithm)
		}
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-*s = %s", width, e.Algorithm, e.Hex)
	}
	return b.String()
}
