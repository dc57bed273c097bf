package codec

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/RowanDark/bytecodec/internal/charset"
)

// Dialect selects the escape grammar understood by DecodeEscaped.
type Dialect int

const (
	// DialectC understands \a \b \f \n \r \t \v \' \" \\, \xHH and octal
	// byte escapes. Numeric escapes produce raw bytes.
	DialectC Dialect = iota
	// DialectLiteral understands the Java string literal escapes
	// \b \f \n \r \t \' \" \\, octal escapes and \uXXXX. Numeric escapes
	// produce characters that are encoded with the charset.
	DialectLiteral
)

func (d Dialect) String() string {
	switch d {
	case DialectC:
		return "c"
	case DialectLiteral:
		return "literal"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// HexWidth selects how many digits a \x escape consumes.
type HexWidth int

const (
	// HexExact2 requires exactly two hex digits after \x. Anything shorter
	// is an incomplete escape.
	HexExact2 HexWidth = iota
	// HexGreedy consumes every following hex digit and keeps the low byte.
	HexGreedy
)

func (w HexWidth) String() string {
	if w == HexGreedy {
		return "greedy"
	}
	return "exact2"
}

// ParseHexWidth accepts "exact2" (or "2", "") and "greedy".
func ParseHexWidth(s string) (HexWidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact2", "2":
		return HexExact2, nil
	case "greedy":
		return HexGreedy, nil
	default:
		return HexExact2, fmt.Errorf("unknown hex width %q", s)
	}
}

func (w HexWidth) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *HexWidth) UnmarshalText(text []byte) error {
	parsed, err := ParseHexWidth(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// EscapeOptions tunes the escape lexer. The zero value reads two-digit
// \x escapes and silently drops undefined escapes.
type EscapeOptions struct {
	HexWidth HexWidth `json:"hex_width"`
	// Strict turns undefined and truncated escapes into MalformedInputError.
	Strict bool `json:"strict"`
}

type lexState int

const (
	stateLiteral lexState = iota
	stateEscapeIntroduced
	stateHexDigits
	stateOctalDigits
	stateUnicodeDigits
)

func (s lexState) String() string {
	switch s {
	case stateLiteral:
		return "Literal"
	case stateEscapeIntroduced:
		return "EscapeIntroduced"
	case stateHexDigits:
		return "HexDigits"
	case stateOctalDigits:
		return "OctalDigits"
	case stateUnicodeDigits:
		return "UnicodeDigits"
	default:
		return fmt.Sprintf("lexState(%d)", int(s))
	}
}

const (
	unbounded      = -1
	maxOctalDigits = 3
)

var cMnemonics = map[rune]rune{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\'': '\'',
	'"':  '"',
	'\\': '\\',
}

var literalMnemonics = map[rune]rune{
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'\'': '\'',
	'"':  '"',
	'\\': '\\',
}

// DecodeEscaped turns escaped text into bytes. Plain characters and
// mnemonic escapes are encoded with cs; C-dialect numeric escapes are
// appended as raw bytes. Undefined escapes are dropped unless opts.Strict
// is set, and a trailing lone backslash is kept as a backslash.
func DecodeEscaped(text string, cs *charset.Charset, dialect Dialect, opts EscapeOptions) ([]byte, error) {
	if cs == nil {
		return nil, &CharsetError{Side: SideInput, Err: charset.ErrEmptyName}
	}
	lx := newLexer(cs, dialect, opts, len(text))
	for pos, r := range text {
		if err := lx.step(pos, r); err != nil {
			return nil, err
		}
	}
	if err := lx.finish(); err != nil {
		return nil, err
	}
	return lx.out, nil
}

// lexer is the per-call state of DecodeEscaped.
type lexer struct {
	cs      *charset.Charset
	dialect Dialect
	opts    EscapeOptions
	format  Format

	state      lexState
	start      int
	remaining  int
	digits     []byte
	skipMarker bool

	// high holds a \u high surrogate until its low half arrives.
	high    rune
	highPos int

	pending strings.Builder
	out     []byte
}

func newLexer(cs *charset.Charset, dialect Dialect, opts EscapeOptions, size int) *lexer {
	format := FormatCEscaped
	if dialect == DialectLiteral {
		format = FormatEscaped
	}
	return &lexer{
		cs:      cs,
		dialect: dialect,
		opts:    opts,
		format:  format,
		digits:  make([]byte, 0, 8),
		out:     make([]byte, 0, size*cs.MaxBytesPerChar()),
	}
}

func (lx *lexer) step(pos int, r rune) error {
	switch lx.state {
	case stateLiteral:
		if r == '\\' {
			lx.state = stateEscapeIntroduced
			lx.start = pos
			return nil
		}
		return lx.emitRune(r)

	case stateEscapeIntroduced:
		return lx.introduce(r)

	case stateHexDigits:
		if lx.remaining != 0 && isHexDigit(r) {
			lx.digits = append(lx.digits, byte(r))
			if lx.remaining > 0 {
				lx.remaining--
			}
			if lx.remaining == 0 {
				return lx.endHex()
			}
			return nil
		}
		if err := lx.endHex(); err != nil {
			return err
		}
		return lx.step(pos, r)

	case stateOctalDigits:
		if lx.remaining > 0 && isOctalDigit(r) {
			lx.digits = append(lx.digits, byte(r))
			lx.remaining--
			if lx.remaining == 0 {
				return lx.endOctal()
			}
			return nil
		}
		if err := lx.endOctal(); err != nil {
			return err
		}
		return lx.step(pos, r)

	case stateUnicodeDigits:
		if lx.skipMarker && (r == 'u' || r == 'U') {
			lx.skipMarker = false
			return nil
		}
		lx.skipMarker = false
		if isHexDigit(r) {
			lx.digits = append(lx.digits, byte(r))
			return nil
		}
		if err := lx.endUnicode(); err != nil {
			return err
		}
		return lx.step(pos, r)
	}
	return fmt.Errorf("escape lexer in unknown state %v", lx.state)
}

func (lx *lexer) introduce(r rune) error {
	lx.state = stateLiteral
	mnemonics := cMnemonics
	if lx.dialect == DialectLiteral {
		mnemonics = literalMnemonics
	}
	if c, ok := mnemonics[r]; ok {
		return lx.emitRune(c)
	}

	switch {
	case lx.dialect == DialectC && (r == 'x' || r == 'X'):
		limit := 2
		if lx.opts.HexWidth == HexGreedy {
			limit = unbounded
		}
		lx.begin(stateHexDigits, limit)
	case isOctalDigit(r):
		lx.begin(stateOctalDigits, maxOctalDigits-1)
		lx.digits = append(lx.digits, byte(r))
	case lx.dialect == DialectLiteral && (r == 'u' || r == 'U'):
		lx.begin(stateUnicodeDigits, unbounded)
		lx.skipMarker = true
	default:
		return lx.reject(ErrUndefinedEscape)
	}
	return nil
}

func (lx *lexer) begin(state lexState, remaining int) {
	lx.state = state
	lx.remaining = remaining
	lx.digits = lx.digits[:0]
	lx.skipMarker = false
}

func (lx *lexer) endHex() error {
	lx.state = stateLiteral
	if len(lx.digits) == 0 || (lx.opts.HexWidth == HexExact2 && len(lx.digits) < 2) {
		if lx.opts.Strict {
			return lx.malformed(lx.start, ErrTruncatedEscape)
		}
		// \x is dropped; digits already read stay as text.
		for _, d := range lx.digits {
			if err := lx.emitRune(rune(d)); err != nil {
				return err
			}
		}
		return nil
	}
	var v byte
	for _, d := range lx.digits {
		v = v<<4 | unhex(d)
	}
	return lx.emitByte(v)
}

func (lx *lexer) endOctal() error {
	lx.state = stateLiteral
	var v rune
	for _, d := range lx.digits {
		v = v<<3 | rune(d-'0')
	}
	if lx.dialect == DialectLiteral {
		return lx.codePoint(v)
	}
	return lx.emitByte(byte(v))
}

func (lx *lexer) endUnicode() error {
	lx.state = stateLiteral
	if len(lx.digits) == 0 {
		return lx.reject(ErrTruncatedEscape)
	}
	var v rune
	for _, d := range lx.digits {
		v = v<<4 | rune(unhex(d))
		if v > unicode.MaxRune {
			if lx.opts.Strict {
				return lx.malformed(lx.start, ErrInvalidCodePoint)
			}
			return lx.emitRune(utf8.RuneError)
		}
	}
	return lx.codePoint(v)
}

// codePoint appends a decoded code point, pairing UTF-16 surrogates that
// arrive as two consecutive escapes.
func (lx *lexer) codePoint(cp rune) error {
	switch {
	case cp >= 0xD800 && cp < 0xDC00:
		if err := lx.flushSurrogate(); err != nil {
			return err
		}
		lx.high = cp
		lx.highPos = lx.start
		return nil
	case cp >= 0xDC00 && cp <= 0xDFFF:
		if lx.high != 0 {
			lx.pending.WriteRune(utf16.DecodeRune(lx.high, cp))
			lx.high = 0
			return nil
		}
		if lx.opts.Strict {
			return lx.malformed(lx.start, ErrInvalidCodePoint)
		}
		lx.pending.WriteRune(utf8.RuneError)
		return nil
	}
	return lx.emitRune(cp)
}

func (lx *lexer) flushSurrogate() error {
	if lx.high == 0 {
		return nil
	}
	lx.high = 0
	if lx.opts.Strict {
		return lx.malformed(lx.highPos, ErrInvalidCodePoint)
	}
	lx.pending.WriteRune(utf8.RuneError)
	return nil
}

func (lx *lexer) emitRune(r rune) error {
	if err := lx.flushSurrogate(); err != nil {
		return err
	}
	lx.pending.WriteRune(r)
	return nil
}

func (lx *lexer) emitByte(b byte) error {
	if err := lx.flushSurrogate(); err != nil {
		return err
	}
	if err := lx.flushText(); err != nil {
		return err
	}
	lx.out = append(lx.out, b)
	return nil
}

func (lx *lexer) flushText() error {
	if lx.pending.Len() == 0 {
		return nil
	}
	out, err := lx.cs.AppendEncode(lx.out, lx.pending.String())
	lx.pending.Reset()
	if err != nil {
		return &CharsetError{Side: SideInput, Name: lx.cs.Name(), Err: err}
	}
	lx.out = out
	return nil
}

func (lx *lexer) finish() error {
	var err error
	switch lx.state {
	case stateEscapeIntroduced:
		lx.state = stateLiteral
		err = lx.emitRune('\\')
	case stateHexDigits:
		err = lx.endHex()
	case stateOctalDigits:
		err = lx.endOctal()
	case stateUnicodeDigits:
		err = lx.endUnicode()
	}
	if err != nil {
		return err
	}
	if err := lx.flushSurrogate(); err != nil {
		return err
	}
	return lx.flushText()
}

// reject handles an escape that produces nothing: an error in strict
// mode, silently dropped otherwise.
func (lx *lexer) reject(cause error) error {
	if lx.opts.Strict {
		return lx.malformed(lx.start, cause)
	}
	return nil
}

func (lx *lexer) malformed(pos int, cause error) error {
	return malformed(lx.format, int64(pos), cause)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isOctalDigit(r rune) bool {
	return r >= '0' && r <= '7'
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// hexPair decodes two hex digits into one byte.
func hexPair(hi, lo byte) (byte, bool) {
	if !isHexDigit(rune(hi)) || !isHexDigit(rune(lo)) {
		return 0, false
	}
	return unhex(hi)<<4 | unhex(lo), true
}
