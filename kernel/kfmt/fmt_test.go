package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		// Strings
		{"%s", []interface{}{"foo"}, "foo"},
		{"%5s", []interface{}{"foo"}, "  foo"},
		{"%s", []interface{}{[]byte("bar")}, "bar"},
		{"%2s", []interface{}{"long string"}, "long string"},
		{"%s", []interface{}{42}, "%!(WRONGTYPE)"},
		// Integers
		{"%d", []interface{}{0}, "0"},
		{"%d", []interface{}{128}, "128"},
		{"%d", []interface{}{-128}, "-128"},
		{"%5d", []interface{}{42}, "   42"},
		{"%5d", []interface{}{-42}, "  -42"},
		{"%d", []interface{}{uint64(0xffffffffffffffff)}, "18446744073709551615"},
		{"%x", []interface{}{uint32(0xbadf00d)}, "badf00d"},
		{"%8x", []interface{}{uint32(0xbadf00d)}, "0badf00d"},
		{"%o", []interface{}{uint8(8)}, "10"},
		{"%x", []interface{}{uintptr(0x123)}, "123"},
		{"%d", []interface{}{int8(-1)}, "-1"},
		{"%d", []interface{}{int16(-300)}, "-300"},
		{"%d", []interface{}{int32(1 << 20)}, "1048576"},
		{"%d", []interface{}{int64(-1 << 40)}, "-1099511627776"},
		{"%d", []interface{}{uint16(65535)}, "65535"},
		{"%d", []interface{}{uint(7)}, "7"},
		{"%d", []interface{}{"not a number"}, "%!(WRONGTYPE)"},
		// Booleans
		{"%t", []interface{}{true}, "true"},
		{"%t", []interface{}{false}, "false"},
		{"%t", []interface{}{"not a bool"}, "%!(WRONGTYPE)"},
		// Mixed output and escaping
		{"frame 0x%x is %s", []interface{}{uintptr(0x9f000), "reserved"}, "frame 0x9f000 is reserved"},
		{"100%%", nil, "100%"},
		// Arg count mismatches
		{"%d %d", []interface{}{1}, "1 (MISSING)"},
		{"%d", []interface{}{1, 2}, "1%!(EXTRA)"},
		// Missing verb
		{"%", nil, "%!(NOVERB)"},
		{"%j", []interface{}{1}, "%!(NOVERB)%!(EXTRA)"},
	}

	var buf bytes.Buffer
	for specIndex, spec := range specs {
		buf.Reset()
		Fprintf(&buf, spec.format, spec.args...)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestPrintfBuffersEarlyOutput(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyBuffer = ringBuffer{}

	Printf("booting %s %d", "kernel", 1)

	// Registering a sink must drain the buffered output into it.
	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "booting kernel 1", buf.String(); got != exp {
		t.Fatalf("expected early output %q to be drained into the sink; got %q", exp, got)
	}

	// Output generated after a sink is registered goes straight to it.
	buf.Reset()
	Printf("%d frames free", 42)

	if exp, got := "42 frames free", buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}
