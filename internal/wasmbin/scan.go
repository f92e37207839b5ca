package wasmbin

import (
	"bytes"
	"errors"
	"sort"
)

// Header and section identifiers of the core binary format.
var magic = []byte{0x00, 0x61, 0x73, 0x6d}

const version = 1

const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
	SectionDataCnt  byte = 12
	SectionTag      byte = 13
)

// ExternKind is the kind byte of an import or export.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0
	ExternTable  ExternKind = 1
	ExternMemory ExternKind = 2
	ExternGlobal ExternKind = 3
	ExternTag    ExternKind = 4
)

// ValType is a value type byte.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// GlobalType describes a global defined or imported by a module.
type GlobalType struct {
	Type    ValType
	Mutable bool
}

// Layout is what the host needs to know about a module's state: its
// exports, and which globals and memories it defines itself.
type Layout struct {
	Exports          []Export
	Globals          []GlobalType
	ImportedGlobals  uint32
	ImportedMemories uint32
	Memories         uint32
}

// Scan reads the import, memory, global and export sections of a core
// module. Function bodies and data are skipped.
func Scan(data []byte) (*Layout, error) {
	r := newReader(data)
	head, err := r.bytes(8)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:4], magic) {
		return nil, ErrInvalidMagic
	}
	if head[4] != version || head[5] != 0 || head[6] != 0 || head[7] != 0 {
		return nil, ErrInvalidVersion
	}

	l := &Layout{}
	for !r.eof() {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		body, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		sr := newReader(body)
		switch id {
		case SectionImport:
			err = scanImports(sr, l)
		case SectionMemory:
			var n uint32
			n, err = sr.u32()
			l.Memories = n
		case SectionGlobal:
			err = scanGlobals(sr, l)
		case SectionExport:
			err = scanExports(sr, l)
		}
		if err != nil {
			return nil, sectionError(id, err)
		}
	}
	return l, nil
}

type scanError struct {
	err     error
	section byte
}

func (e *scanError) Error() string {
	return "section " + sectionName(e.section) + ": " + e.err.Error()
}

func (e *scanError) Unwrap() error { return e.err }

func sectionError(id byte, err error) error {
	return &scanError{section: id, err: err}
}

func sectionName(id byte) string {
	switch id {
	case SectionImport:
		return "import"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	}
	return "unknown"
}

func scanImports(r *reader, l *Layout) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		if _, err := r.name(); err != nil {
			return err
		}
		if _, err := r.name(); err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		switch ExternKind(kind) {
		case ExternFunc:
			_, err = r.u32()
		case ExternTable:
			if _, err = readRefType(r); err == nil {
				err = skipLimits(r)
			}
		case ExternMemory:
			l.ImportedMemories++
			err = skipLimits(r)
		case ExternGlobal:
			_, err = readGlobalType(r)
			l.ImportedGlobals++
		case ExternTag:
			if _, err = r.byte(); err == nil {
				_, err = r.u32()
			}
		default:
			return r.errorf("unknown import kind 0x%02x", kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func scanGlobals(r *reader, l *Layout) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	l.Globals = make([]GlobalType, 0, count)
	for i := uint32(0); i < count; i++ {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		if err := skipConstExpr(r); err != nil {
			return err
		}
		l.Globals = append(l.Globals, gt)
	}
	return nil
}

func scanExports(r *reader, l *Layout) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	l.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		if kind > byte(ExternTag) {
			return r.errorf("invalid export kind 0x%02x", kind)
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		l.Exports = append(l.Exports, Export{Name: name, Kind: ExternKind(kind), Index: idx})
	}
	return nil
}

func skipLimits(r *reader) error {
	flags, err := r.byte()
	if err != nil {
		return err
	}
	read := r.skipLEB
	if err := read(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		return read()
	}
	return nil
}

func readRefType(r *reader) (byte, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	// (ref null ht) and (ref ht) carry a heap type.
	if b == 0x63 || b == 0x64 {
		return b, r.skipLEB()
	}
	return b, nil
}

func readGlobalType(r *reader) (GlobalType, error) {
	vt, err := readRefType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.byte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, r.errorf("invalid mutability 0x%02x", mut)
	}
	return GlobalType{Type: ValType(vt), Mutable: mut == 1}, nil
}

// skipConstExpr skips an initializer expression up to and including its end
// opcode.
func skipConstExpr(r *reader) error {
	for {
		op, err := r.byte()
		if err != nil {
			return err
		}
		switch op {
		case 0x0b: // end
			return nil
		case 0x41, 0x42, 0x23, 0xd0, 0xd2: // i32.const i64.const global.get ref.null ref.func
			err = r.skipLEB()
		case 0x43: // f32.const
			err = r.skip(4)
		case 0x44: // f64.const
			err = r.skip(8)
		case 0x6a, 0x6b, 0x6c, 0x7c, 0x7d, 0x7e: // extended-const arithmetic
		case 0xfd: // v128.const
			var sub uint32
			if sub, err = r.u32(); err == nil && sub == 12 {
				err = r.skip(16)
			}
		case 0xfb: // gc prefix
			err = skipGCConst(r)
		default:
			return r.errorf("unsupported opcode 0x%02x in constant expression", op)
		}
		if err != nil {
			return err
		}
	}
}

func skipGCConst(r *reader) error {
	sub, err := r.u32()
	if err != nil {
		return err
	}
	switch sub {
	case 0, 1, 6, 7: // struct.new(_default) array.new(_default): typeidx
		return r.skipLEB()
	case 8, 9, 10: // array.new_fixed, array.new_data, array.new_elem: two immediates
		if err := r.skipLEB(); err != nil {
			return err
		}
		return r.skipLEB()
	case 26, 27, 28: // any.convert_extern extern.convert_any ref.i31
		return nil
	}
	return r.errorf("unsupported gc opcode %d in constant expression", sub)
}

// MemoryExports returns one export name per memory the module defines, in
// export order. A memory exported under several names is listed once, by
// its first name. Imported memories are not listed.
func (l *Layout) MemoryExports() []string {
	seen := make(map[uint32]bool)
	var names []string
	for _, e := range l.Exports {
		if e.Kind != ExternMemory || e.Index < l.ImportedMemories || seen[e.Index] {
			continue
		}
		seen[e.Index] = true
		names = append(names, e.Name)
	}
	return names
}

// MutableGlobalExports returns one export name per mutable global the module
// defines, ordered by global index. Immutable and imported globals are not
// listed.
func (l *Layout) MutableGlobalExports() []string {
	byIndex := make(map[uint32]string)
	for _, e := range l.Exports {
		if e.Kind != ExternGlobal || e.Index < l.ImportedGlobals {
			continue
		}
		local := e.Index - l.ImportedGlobals
		if int(local) >= len(l.Globals) || !l.Globals[local].Mutable {
			continue
		}
		if _, dup := byIndex[e.Index]; !dup {
			byIndex[e.Index] = e.Name
		}
	}
	idxs := make([]uint32, 0, len(byIndex))
	for idx := range byIndex {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	names := make([]string, len(idxs))
	for i, idx := range idxs {
		names[i] = byIndex[idx]
	}
	return names
}
