// Package kfmt provides a minimal, allocation-free Printf implementation
// that can be safely used at any point during the boot sequence, even before
// the Go runtime memory allocator has been bootstrapped.
package kfmt

import "io"

// numBufSize is large enough to format a 64-bit value in base 8.
const numBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	// numBuf holds the digits of the integer value currently being
	// formatted. Using a shared package-level buffer keeps Fprintf free of
	// memory allocations.
	numBuf [numBufSize]byte

	// singleByte is a shared one-byte buffer used to emit individual
	// characters without triggering a string to []byte conversion which
	// would allocate.
	singleByte = []byte{0}

	// earlyBuffer captures any Printf output generated before an output
	// sink has been registered.
	earlyBuffer ringBuffer

	// outputSink is the io.Writer that Printf sends its output to. While
	// it is nil, output is redirected to earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink registers w as the target for Printf output and drains any
// output that accumulated in the early boot buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

// Printf formats its arguments using the currently registered output sink.
// If no sink has been registered yet, the output is buffered until a call to
// SetOutputSink.
//
// The following subset of formatting verbs is supported:
//
// Strings:
//		%s the uninterpreted bytes of the string or byte slice
//
// Integers:
//		%o base 8
//		%d base 10
//		%x base 16, with lower-case letters for a-f
//
// Booleans:
//		%t "true" or "false"
//
// An optional decimal width may precede the verb. Strings and base-10 values
// shorter than the width are left-padded with spaces; base-8 and base-16
// values are left-padded with zeroes.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but writes the formatted output to w.
// A nil writer redirects the output to the early boot buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		fmtLen   = len(format)
	)

	for i := 0; i < fmtLen; i++ {
		ch := format[i]
		if ch != '%' {
			writeByte(w, ch)
			continue
		}

		// Parse an optional decimal width followed by the verb.
		padLen := 0
		for i++; i < fmtLen && format[i] >= '0' && format[i] <= '9'; i++ {
			padLen = padLen*10 + int(format[i]-'0')
		}

		if i >= fmtLen {
			write(w, errNoVerb)
			break
		}

		verb := format[i]
		if verb == '%' {
			writeByte(w, '%')
			continue
		}

		if argIndex >= len(args) {
			write(w, errMissingArg)
			continue
		}

		switch verb {
		case 'o':
			fmtInt(w, args[argIndex], 8, padLen)
		case 'd':
			fmtInt(w, args[argIndex], 10, padLen)
		case 'x':
			fmtInt(w, args[argIndex], 16, padLen)
		case 's':
			fmtString(w, args[argIndex], padLen)
		case 't':
			fmtBool(w, args[argIndex])
		default:
			write(w, errNoVerb)
			continue
		}

		argIndex++
	}

	// Flag any unused arguments.
	for ; argIndex < len(args); argIndex++ {
		write(w, errExtraArg)
	}
}

// fmtBool emits the formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	switch val := v.(type) {
	case bool:
		if val {
			write(w, trueValue)
		} else {
			write(w, falseValue)
		}
	default:
		write(w, errWrongArgType)
	}
}

// fmtString emits the formatted version of string or []byte value v,
// left-padding with spaces up to padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch val := v.(type) {
	case string:
		for i := padLen - len(val); i > 0; i-- {
			writeByte(w, ' ')
		}
		// Writing the string contents one byte at a time avoids the
		// allocation caused by a string to []byte conversion.
		for i := 0; i < len(val); i++ {
			writeByte(w, val[i])
		}
	case []byte:
		for i := padLen - len(val); i > 0; i-- {
			writeByte(w, ' ')
		}
		write(w, val)
	default:
		write(w, errWrongArgType)
	}
}

// fmtInt emits the formatted version of v in the requested base, applying
// the padding specified by padLen. All built-in signed and unsigned integer
// types are supported.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		sval int64
		uval uint64
	)

	switch val := v.(type) {
	case uint8:
		uval = uint64(val)
	case uint16:
		uval = uint64(val)
	case uint32:
		uval = uint64(val)
	case uint64:
		uval = val
	case uint:
		uval = uint64(val)
	case uintptr:
		uval = uint64(val)
	case int8:
		sval = int64(val)
	case int16:
		sval = int64(val)
	case int32:
		sval = int64(val)
	case int64:
		sval = val
	case int:
		sval = int64(val)
	default:
		write(w, errWrongArgType)
		return
	}

	neg := sval < 0
	if neg {
		uval = uint64(-sval)
	} else if sval > 0 {
		uval = uint64(sval)
	}

	digits := 0
	for {
		rem := uval % uint64(base)
		if rem < 10 {
			numBuf[digits] = '0' + byte(rem)
		} else {
			numBuf[digits] = 'a' + byte(rem-10)
		}
		digits++

		uval /= uint64(base)
		if uval == 0 {
			break
		}
	}

	padCh := byte('0')
	if base == 10 {
		padCh = ' '
	}

	padCount := padLen - digits
	if neg {
		padCount--
	}

	// Zero padding goes between the sign and the digits; space padding
	// goes before the sign.
	if padCh == '0' {
		if neg {
			writeByte(w, '-')
		}
		for ; padCount > 0; padCount-- {
			writeByte(w, '0')
		}
	} else {
		for ; padCount > 0; padCount-- {
			writeByte(w, ' ')
		}
		if neg {
			writeByte(w, '-')
		}
	}

	for digits--; digits >= 0; digits-- {
		writeByte(w, numBuf[digits])
	}
}

// writeByte emits a single character via the shared one-byte buffer.
func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	write(w, singleByte)
}

// write sends p to w, falling back to the early boot buffer when no writer
// is available.
func write(w io.Writer, p []byte) {
	if w != nil {
		w.Write(p)
		return
	}
	earlyBuffer.Write(p)
}
