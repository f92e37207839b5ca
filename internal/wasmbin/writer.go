package wasmbin

// writer accumulates the binary encoding of a module.
type writer struct {
	buf []byte
}

func (w *writer) Bytes() []byte { return w.buf }

func (w *writer) byte(b byte) { w.buf = append(w.buf, b) }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return
		}
	}
}

func (w *writer) s64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if done {
			return
		}
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// section writes id followed by the size-prefixed body.
func (w *writer) section(id byte, body []byte) {
	w.byte(id)
	w.u32(uint32(len(body)))
	w.raw(body)
}
