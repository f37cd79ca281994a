// Package escape appends JSON string escaping per RFC 8259, used for the
// canonical event serialization where encoding must be byte-exact.
package escape

// String appends the JSON string form of s to dst, including the enclosing
// quotes.
func String(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c < 0x20:
			const hexChars = "0123456789abcdef"
			dst = append(dst, '\\', 'u', '0', '0',
				hexChars[c>>4], hexChars[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	dst = append(dst, '"')
	return dst
}
