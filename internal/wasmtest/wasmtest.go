// Package wasmtest assembles small WebAssembly binaries for tests of the
// host module. It covers the handful of sections guest fixtures need:
// types, imports, functions, one memory, exports, code and active data.
package wasmtest

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F64 byte = 0x7c
)

// Opcodes used by fixtures.
const (
	OpEnd      byte = 0x0b
	OpCall     byte = 0x10
	OpDrop     byte = 0x1a
	OpLocalGet byte = 0x20
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
)

// Func is one signature.
type Func struct {
	Params  []byte
	Results []byte
}

type importEntry struct {
	module, name string
	typ          int
}

type exportEntry struct {
	name  string
	kind  byte
	index int
}

type body struct {
	typ  int
	code []byte
}

type data struct {
	offset int
	bytes  []byte
}

// Module accumulates sections. Imported functions take the lowest
// function indices in the order they are added.
type Module struct {
	types   []Func
	imports []importEntry
	funcs   []body
	exports []exportEntry
	data    []data
	memory  bool
}

// Type adds a signature and returns its index. Identical signatures are
// shared.
func (m *Module) Type(params, results []byte) int {
	for i, t := range m.types {
		if string(t.Params) == string(params) && string(t.Results) == string(results) {
			return i
		}
	}
	m.types = append(m.types, Func{Params: params, Results: results})
	return len(m.types) - 1
}

// Import adds a function import and returns its function index.
func (m *Module) Import(module, name string, params, results []byte) int {
	m.imports = append(m.imports, importEntry{module: module, name: name, typ: m.Type(params, results)})
	return len(m.imports) - 1
}

// Func adds a function with code (without the trailing end) and exports
// it under name when name is not empty.
func (m *Module) Func(name string, params, results []byte, code ...byte) int {
	m.funcs = append(m.funcs, body{typ: m.Type(params, results), code: code})
	idx := len(m.imports) + len(m.funcs) - 1
	if name != "" {
		m.exports = append(m.exports, exportEntry{name: name, kind: 0x00, index: idx})
	}
	return idx
}

// Memory declares one page of memory exported as "memory".
func (m *Module) Memory() {
	m.memory = true
	m.exports = append(m.exports, exportEntry{name: "memory", kind: 0x02, index: 0})
}

// Data places bytes in memory at offset.
func (m *Module) Data(offset int, b []byte) {
	m.data = append(m.data, data{offset: offset, bytes: b})
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types [][]byte
	for _, t := range m.types {
		e := []byte{0x60}
		e = append(e, vec(bytesOf(t.Params)...)...)
		e = append(e, vec(bytesOf(t.Results)...)...)
		types = append(types, e)
	}
	out = append(out, section(0x01, vec(types...))...)

	if len(m.imports) > 0 {
		var imports [][]byte
		for _, im := range m.imports {
			e := append(name(im.module), name(im.name)...)
			e = append(e, 0x00)
			e = append(e, ULEB(im.typ)...)
			imports = append(imports, e)
		}
		out = append(out, section(0x02, vec(imports...))...)
	}

	var funcs [][]byte
	for _, f := range m.funcs {
		funcs = append(funcs, ULEB(f.typ))
	}
	out = append(out, section(0x03, vec(funcs...))...)

	if m.memory {
		out = append(out, section(0x05, vec([]byte{0x00, 0x01}))...)
	}

	var exports [][]byte
	for _, ex := range m.exports {
		e := append(name(ex.name), ex.kind)
		e = append(e, ULEB(ex.index)...)
		exports = append(exports, e)
	}
	out = append(out, section(0x07, vec(exports...))...)

	var code [][]byte
	for _, f := range m.funcs {
		b := append([]byte{0x00}, f.code...)
		b = append(b, OpEnd)
		code = append(code, append(ULEB(len(b)), b...))
	}
	out = append(out, section(0x0a, vec(code...))...)

	if len(m.data) > 0 {
		var segs [][]byte
		for _, d := range m.data {
			e := []byte{0x00, OpI32Const}
			e = append(e, SLEB(int64(d.offset))...)
			e = append(e, OpEnd)
			e = append(e, ULEB(len(d.bytes))...)
			e = append(e, d.bytes...)
			segs = append(segs, e)
		}
		out = append(out, section(0x0b, vec(segs...))...)
	}
	return out
}

// ULEB encodes n as unsigned LEB128.
func ULEB(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// SLEB encodes n as signed LEB128.
func SLEB(n int64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// I32Const encodes i32.const n.
func I32Const(n int32) []byte {
	return append([]byte{OpI32Const}, SLEB(int64(n))...)
}

// I64Const encodes i64.const n.
func I64Const(n int64) []byte {
	return append([]byte{OpI64Const}, SLEB(n)...)
}

// LocalGet encodes local.get i.
func LocalGet(i int) []byte {
	return append([]byte{OpLocalGet}, ULEB(i)...)
}

// Call encodes call fn.
func Call(fn int) []byte {
	return append([]byte{OpCall}, ULEB(fn)...)
}

// Code concatenates instruction fragments.
func Code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func section(id byte, content []byte) []byte {
	return append(append([]byte{id}, ULEB(len(content))...), content...)
}

func vec(items ...[]byte) []byte {
	out := ULEB(len(items))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func bytesOf(b []byte) [][]byte {
	out := make([][]byte, len(b))
	for i := range b {
		out[i] = []byte{b[i]}
	}
	return out
}

func name(s string) []byte {
	return append(ULEB(len(s)), s...)
}
