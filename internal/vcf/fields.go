package vcf

// Character classes shared by the meta, header and body grammars.

func isPrintable(c byte) bool {
	return c >= 0x21 && c <= 0x7e
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		return true
	}
	return false
}

// allBytes reports whether s is non-empty and every byte satisfies ok.
func allBytes(s []byte, ok func(byte) bool) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !ok(c) {
			return false
		}
	}
	return true
}

func isBases(s []byte) bool {
	return allBytes(s, isBase)
}

func isInteger(s []byte) bool {
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	return allBytes(s, isDigit)
}

func isUnsigned(s []byte) bool {
	return allBytes(s, isDigit)
}

// isFloat accepts decimal numbers with optional sign, fraction and exponent.
func isFloat(s []byte) bool {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '-' || s[i] == '+') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

// splitBytes splits s on sep without allocating new backing arrays.
func splitBytes(s []byte, sep byte) [][]byte {
	parts := make([][]byte, 0, 4)
	start := 0
	for i, c := range s {
		if c == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// eachPart reports whether every sep-separated part of s satisfies ok.
func eachPart(s []byte, sep byte, ok func([]byte) bool) bool {
	for _, part := range splitBytes(s, sep) {
		if !ok(part) {
			return false
		}
	}
	return true
}

func isMissing(s []byte) bool {
	return len(s) == 1 && s[0] == '.'
}
