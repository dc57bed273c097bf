package codec

import (
	"fmt"
	"strings"
)

const hexViewColumns = 16

// HexView renders data as a table of 16 bytes per row. Each row starts
// with its offset, counted from offset, and ends with the printable ASCII
// characters of the row; other bytes show as '.'.
func HexView(data []byte, offset int64) string {
	var b strings.Builder
	b.WriteString("Offset  ")
	for i := 0; i < hexViewColumns; i++ {
		fmt.Fprintf(&b, " %02X", i)
	}
	b.WriteString("  ASCII")

	for row := 0; row < len(data); row += hexViewColumns {
		end := row + hexViewColumns
		if end > len(data) {
			end = len(data)
		}
		chunk := data[row:end]

		fmt.Fprintf(&b, "\n%08X", offset+int64(row))
		for i := 0; i < hexViewColumns; i++ {
			if i < len(chunk) {
				fmt.Fprintf(&b, " %02X", chunk[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("  ")
		for _, v := range chunk {
			if v >= 0x20 && v < 0x7F {
				b.WriteByte(v)
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}
