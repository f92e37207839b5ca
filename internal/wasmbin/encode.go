package wasmbin

import (
	"encoding/binary"
	"math"
)

// Opcodes used by hand-assembled function bodies.
const (
	OpEnd        byte = 0x0b
	OpCall       byte = 0x10
	OpDrop       byte = 0x1a
	OpLocalGet   byte = 0x20
	OpGlobalGet  byte = 0x23
	OpGlobalSet  byte = 0x24
	OpI32Load    byte = 0x28
	OpI32Store   byte = 0x36
	OpI32Store8  byte = 0x3a
	OpMemorySize byte = 0x3f
	OpMemoryGrow byte = 0x40
	OpI32Const   byte = 0x41
	OpI64Const   byte = 0x42
	OpI32Add     byte = 0x6a
	OpI64Add     byte = 0x7c
	OpI32WrapI64 byte = 0xa7
)

// Limits bounds a memory in 64 KiB pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// Func is a function with its own signature. Body holds the instructions
// without the trailing end opcode.
type Func struct {
	Params  []ValType
	Results []ValType
	Locals  []ValType
	Body    []byte
}

// Global is a defined global with a constant initializer.
type Global struct {
	Init    uint64
	Type    ValType
	Mutable bool
}

// Data is an active data segment.
type Data struct {
	Bytes  []byte
	Memory uint32
	Offset uint32
}

// Import is an imported function, memory or global. Set exactly one of
// Func, Memory and Global; only the signature of Func is used.
type Import struct {
	Func   *Func
	Memory *Limits
	Global *GlobalType
	Module string
	Name   string
}

// Module is a small core module description that Encode turns into the
// binary format. Imports come first in their index spaces, as in the format
// itself.
type Module struct {
	Imports  []Import
	Funcs    []Func
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Data     []Data
}

// Encode returns the binary encoding of m.
func (m *Module) Encode() []byte {
	var out writer
	out.raw(magic)
	out.raw([]byte{version, 0, 0, 0})

	// One type per function: imported functions first, then defined ones.
	var sigs []*Func
	for _, im := range m.Imports {
		if im.Func != nil {
			sigs = append(sigs, im.Func)
		}
	}
	imported := uint32(len(sigs))
	for i := range m.Funcs {
		sigs = append(sigs, &m.Funcs[i])
	}
	if len(sigs) > 0 {
		var types writer
		types.u32(uint32(len(sigs)))
		for _, f := range sigs {
			types.byte(0x60)
			valTypes(&types, f.Params)
			valTypes(&types, f.Results)
		}
		out.section(SectionType, types.Bytes())
	}

	if len(m.Imports) > 0 {
		var imports writer
		imports.u32(uint32(len(m.Imports)))
		var typeIdx uint32
		for _, im := range m.Imports {
			imports.name(im.Module)
			imports.name(im.Name)
			switch {
			case im.Func != nil:
				imports.byte(byte(ExternFunc))
				imports.u32(typeIdx)
				typeIdx++
			case im.Memory != nil:
				imports.byte(byte(ExternMemory))
				limits(&imports, *im.Memory)
			case im.Global != nil:
				imports.byte(byte(ExternGlobal))
				imports.byte(byte(im.Global.Type))
				imports.byte(mutability(im.Global.Mutable))
			}
		}
		out.section(SectionImport, imports.Bytes())
	}

	if len(m.Funcs) > 0 {
		var funcs writer
		funcs.u32(uint32(len(m.Funcs)))
		for i := range m.Funcs {
			funcs.u32(imported + uint32(i))
		}
		out.section(SectionFunction, funcs.Bytes())
	}

	if len(m.Memories) > 0 {
		var mems writer
		mems.u32(uint32(len(m.Memories)))
		for _, l := range m.Memories {
			limits(&mems, l)
		}
		out.section(SectionMemory, mems.Bytes())
	}

	if len(m.Globals) > 0 {
		var globals writer
		globals.u32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			globals.byte(byte(g.Type))
			globals.byte(mutability(g.Mutable))
			constExpr(&globals, g.Type, g.Init)
		}
		out.section(SectionGlobal, globals.Bytes())
	}

	if len(m.Exports) > 0 {
		var exports writer
		exports.u32(uint32(len(m.Exports)))
		for _, e := range m.Exports {
			exports.name(e.Name)
			exports.byte(byte(e.Kind))
			exports.u32(e.Index)
		}
		out.section(SectionExport, exports.Bytes())
	}

	if len(m.Funcs) > 0 {
		var code writer
		code.u32(uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body writer
			body.u32(uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body.u32(1)
				body.byte(byte(l))
			}
			body.raw(f.Body)
			body.byte(OpEnd)
			code.u32(uint32(len(body.buf)))
			code.raw(body.buf)
		}
		out.section(SectionCode, code.Bytes())
	}

	if len(m.Data) > 0 {
		var data writer
		data.u32(uint32(len(m.Data)))
		for _, d := range m.Data {
			if d.Memory == 0 {
				data.u32(0)
			} else {
				data.u32(2)
				data.u32(d.Memory)
			}
			constExpr(&data, I32, uint64(d.Offset))
			data.u32(uint32(len(d.Bytes)))
			data.raw(d.Bytes)
		}
		out.section(SectionData, data.Bytes())
	}

	return out.Bytes()
}

func valTypes(w *writer, vts []ValType) {
	w.u32(uint32(len(vts)))
	for _, vt := range vts {
		w.byte(byte(vt))
	}
}

func limits(w *writer, l Limits) {
	if l.Max == nil {
		w.byte(0x00)
		w.u32(l.Min)
		return
	}
	w.byte(0x01)
	w.u32(l.Min)
	w.u32(*l.Max)
}

func mutability(mut bool) byte {
	if mut {
		return 1
	}
	return 0
}

func constExpr(w *writer, vt ValType, bits uint64) {
	switch vt {
	case I32:
		w.byte(OpI32Const)
		w.s64(int64(int32(uint32(bits))))
	case I64:
		w.byte(OpI64Const)
		w.s64(int64(bits))
	case F32:
		w.byte(0x43)
		w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(bits))
	case F64:
		w.byte(0x44)
		w.buf = binary.LittleEndian.AppendUint64(w.buf, bits)
	}
	w.byte(OpEnd)
}

// I32Const encodes i32.const v.
func I32Const(v int32) []byte {
	w := writer{buf: []byte{OpI32Const}}
	w.s64(int64(v))
	return w.buf
}

// I64Const encodes i64.const v.
func I64Const(v int64) []byte {
	w := writer{buf: []byte{OpI64Const}}
	w.s64(v)
	return w.buf
}

// Index encodes an opcode that takes a single index immediate, such as
// global.get or local.get.
func Index(op byte, idx uint32) []byte {
	w := writer{buf: []byte{op}}
	w.u32(idx)
	return w.buf
}

// MemArg encodes a load or store with the given alignment exponent and
// offset against memory 0.
func MemArg(op byte, align, offset uint32) []byte {
	w := writer{buf: []byte{op}}
	w.u32(align)
	w.u32(offset)
	return w.buf
}

// Memory encodes memory.size or memory.grow against memory idx.
func Memory(op byte, idx uint32) []byte {
	return Index(op, idx)
}

// Code concatenates instruction fragments. Single opcodes may be passed as
// one-byte slices.
func Code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Op wraps a bare opcode for use with Code.
func Op(op byte) []byte { return []byte{op} }

// F64Bits returns the bit pattern used for an f64 Global.Init.
func F64Bits(v float64) uint64 { return math.Float64bits(v) }
