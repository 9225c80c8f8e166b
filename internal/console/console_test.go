package console

import (
	"bytes"
	"strings"
	"testing"
)

func capture(quiet bool) (*Console, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errw := &bytes.Buffer{}
	return &Console{quiet: quiet, out: out, errw: errw}, out, errw
}

func TestQuietSuppressesNormalOutput(t *testing.T) {
	c, out, errw := capture(true)
	c.Printf("building %d", 1)
	c.Headerf("header")
	if out.Len() != 0 {
		t.Errorf("quiet console wrote to stdout: %q", out.String())
	}
	c.Warnf("low space")
	c.Errorf("it broke")
	if !strings.Contains(errw.String(), "low space") || !strings.Contains(errw.String(), "it broke") {
		t.Errorf("warnings/errors missing from stderr: %q", errw.String())
	}
}

func TestVerboseOutput(t *testing.T) {
	c, out, _ := capture(false)
	c.Printf("plotting %s", "42_0_4")
	if !strings.Contains(out.String(), "plotting 42_0_4") {
		t.Errorf("stdout missing output: %q", out.String())
	}
	if c.Quiet() {
		t.Error("Quiet() = true for verbose console")
	}
}
