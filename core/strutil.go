package core

// String helpers for the debug path. fmt pulls in too much for the firmware
// image, so numbers are formatted by hand.

// utoa converts an unsigned integer to its decimal string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// itoa converts a signed integer to its decimal string
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

const hexDigits = "0123456789ABCDEF"

// hex8 formats a byte as two upper-case hex digits
func hex8(b uint8) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}
