package codec

import "strings"

// ToLiteral renders data as a comma-separated list of 0xHH byte literals
// suitable for pasting into an array initializer. Empty input yields "".
func ToLiteral(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(data)*6 - 2)
	for i, v := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("0x")
		b.WriteByte(upperHex[v>>4])
		b.WriteByte(upperHex[v&0x0F])
	}
	return b.String()
}
