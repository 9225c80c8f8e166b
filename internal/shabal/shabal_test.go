package shabal

import (
	"bytes"
	"testing"
)

func testMessage(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i*7 + n)
	}
	return msg
}

func TestSum256Deterministic(t *testing.T) {
	msg := testMessage(200)
	a := Sum256(msg)
	b := Sum256(msg)
	if a != b {
		t.Fatal("same input produced different digests")
	}
}

func TestSum256Distinct(t *testing.T) {
	a := Sum256([]byte("nonce 0"))
	b := Sum256([]byte("nonce 1"))
	if a == b {
		t.Fatal("distinct inputs produced identical digests")
	}

	// A single flipped bit must change the digest.
	msg := testMessage(128)
	a = Sum256(msg)
	msg[64] ^= 0x01
	b = Sum256(msg)
	if a == b {
		t.Fatal("bit flip did not change the digest")
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	for _, n := range []int{0, 1, 16, 31, 63, 64, 65, 127, 128, 200, 4096, 16384} {
		msg := testMessage(n)
		want := Sum256(msg)

		h := New()
		h.Write(msg)
		if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
			t.Errorf("len %d: streaming digest differs from one-shot", n)
		}

		// Split writes at awkward boundaries.
		h.Reset()
		for off := 0; off < len(msg); off += 37 {
			end := off + 37
			if end > len(msg) {
				end = len(msg)
			}
			h.Write(msg[off:end])
		}
		if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
			t.Errorf("len %d: chunked digest differs from one-shot", n)
		}
	}
}

func TestSumDoesNotDisturbState(t *testing.T) {
	msg := testMessage(100)
	h := New()
	h.Write(msg[:50])
	h.Sum(nil)
	h.Write(msg[50:])
	want := Sum256(msg)
	if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
		t.Fatal("Sum disturbed the running state")
	}
}

func TestBatchMatchesScalar(t *testing.T) {
	// Lengths mirror the plotting workload: 16-byte seed, growing
	// 32-byte-stepped prefixes, the 4096-byte cap and block multiples.
	lengths := []int{0, 16, 48, 80, 175, 4064, 4096, 8192}
	for _, width := range []int{4, 8, 16} {
		k, err := NewKernel(width)
		if err != nil {
			t.Fatalf("NewKernel(%d): %v", width, err)
		}
		for _, n := range lengths {
			msgs := make([][]byte, width)
			out := make([][]byte, width)
			for l := range msgs {
				msg := testMessage(n)
				for i := range msg {
					msg[i] ^= byte(l * 31)
				}
				msgs[l] = msg
				out[l] = make([]byte, Size)
			}
			k.Sum(msgs, out)
			for l := range msgs {
				want := Sum256(msgs[l])
				if !bytes.Equal(out[l], want[:]) {
					t.Errorf("width %d len %d lane %d: batch digest differs from scalar", width, n, l)
				}
			}
		}
	}
}

func TestKernelReuse(t *testing.T) {
	k, err := NewKernel(4)
	if err != nil {
		t.Fatal(err)
	}
	msgs := make([][]byte, 4)
	out1 := make([][]byte, 4)
	out2 := make([][]byte, 4)
	for l := range msgs {
		msgs[l] = testMessage(100 + l)
		msgs[l] = msgs[l][:100]
		out1[l] = make([]byte, Size)
		out2[l] = make([]byte, Size)
	}
	k.Sum(msgs, out1)
	k.Sum(msgs, out2)
	for l := range msgs {
		if !bytes.Equal(out1[l], out2[l]) {
			t.Errorf("lane %d: kernel state leaked between Sum calls", l)
		}
	}
}

func TestScalarKernel(t *testing.T) {
	k, err := NewKernel(1)
	if err != nil {
		t.Fatal(err)
	}
	if k.Lanes() != 1 {
		t.Fatalf("scalar kernel lanes = %d", k.Lanes())
	}
	msg := testMessage(500)
	out := [][]byte{make([]byte, Size)}
	k.Sum([][]byte{msg}, out)
	want := Sum256(msg)
	if !bytes.Equal(out[0], want[:]) {
		t.Fatal("scalar kernel differs from Sum256")
	}
}

func TestNewKernelRejectsOddWidths(t *testing.T) {
	for _, w := range []int{0, 2, 3, 5, 32} {
		if _, err := NewKernel(w); err == nil {
			t.Errorf("NewKernel(%d) accepted an unsupported width", w)
		}
	}
}

func TestPreferredWidthSupported(t *testing.T) {
	width, isa := PreferredWidth()
	if _, err := NewKernel(width); err != nil {
		t.Fatalf("preferred width %d (%s) has no kernel: %v", width, isa, err)
	}
	if isa == "" {
		t.Fatal("empty ISA name")
	}
}

func BenchmarkSum256(b *testing.B) {
	msg := testMessage(4096)
	b.SetBytes(int64(len(msg)))
	for i := 0; i < b.N; i++ {
		Sum256(msg)
	}
}

func BenchmarkBatch8(b *testing.B) {
	k, _ := NewKernel(8)
	msgs := make([][]byte, 8)
	out := make([][]byte, 8)
	for l := range msgs {
		msgs[l] = testMessage(4096)
		out[l] = make([]byte, Size)
	}
	b.SetBytes(8 * 4096)
	for i := 0; i < b.N; i++ {
		k.Sum(msgs, out)
	}
}
