// Package wasmenc assembles small WebAssembly core modules in memory. It
// covers the subset scriptlib needs to ship guest fixtures and demo scripts
// without an external toolchain: function types, function imports, one
// memory, exports, code and active data segments.
package wasmenc

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	magic   = 0x6d736100 // \0asm
	version = 1
)

// Section IDs.
const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// ExportKind is the kind of an exported item.
type ExportKind byte

const (
	ExportFunc   ExportKind = 0x00
	ExportMemory ExportKind = 0x02
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is a function import.
type Import struct {
	Module string
	Name   string
	Type   uint32
}

// Func is a defined function. Body holds the instructions including the
// final end opcode.
type Func struct {
	Type   uint32
	Locals []ValType
	Body   []byte
}

// Export names a function or the memory.
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Data is an active segment in memory 0.
type Data struct {
	Offset int32
	Init   []byte
}

// Module is a core module under construction. Function indices count the
// imports first, then Funcs in order.
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []Func
	Exports []Export
	Data    []Data

	// MemoryPages declares memory 0 with this minimum size when non-zero.
	MemoryPages uint32
}

// Encode returns the binary encoding of the module.
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	_ = binary.Write(&w, binary.LittleEndian, uint32(magic))
	_ = binary.Write(&w, binary.LittleEndian, uint32(version))

	if len(m.Types) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.WriteByte(0x60)
			writeValTypes(&sec, ft.Params)
			writeValTypes(&sec, ft.Results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			writeName(&sec, imp.Module)
			writeName(&sec, imp.Name)
			sec.WriteByte(0x00)
			writeU32(&sec, imp.Type)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			writeU32(&sec, f.Type)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.MemoryPages > 0 {
		var sec bytes.Buffer
		writeU32(&sec, 1)
		sec.WriteByte(0x00)
		writeU32(&sec, m.MemoryPages)
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			writeName(&sec, exp.Name)
			sec.WriteByte(byte(exp.Kind))
			writeU32(&sec, exp.Index)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			var body bytes.Buffer
			writeU32(&body, uint32(len(f.Locals)))
			for _, l := range f.Locals {
				writeU32(&body, 1)
				body.WriteByte(byte(l))
			}
			body.Write(f.Body)
			writeU32(&sec, uint32(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		var sec bytes.Buffer
		writeU32(&sec, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.WriteByte(0x00)
			sec.WriteByte(opI32Const)
			writeS32(&sec, d.Offset)
			sec.WriteByte(opEnd)
			writeU32(&sec, uint32(len(d.Init)))
			sec.Write(d.Init)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeU32(w, uint32(len(data)))
	w.Write(data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	writeU32(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}

func writeName(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeU32(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func writeS32(w *bytes.Buffer, v int32) {
	writeS64(w, int64(v))
}

func writeS64(w *bytes.Buffer, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}

// Opcodes used by Code.
const (
	opTrap     = 0x00
	opIf       = 0x04
	opEnd      = 0x0b
	opCall     = 0x10
	opDrop     = 0x1a
	opLocalGet = 0x20
	opI32Const = 0x41
	opI64Const = 0x42
	opF32Const = 0x43
	blockVoid  = 0x40
)

// Code builds a function body one instruction at a time.
type Code struct {
	buf bytes.Buffer
}

func (c *Code) I32Const(v int32) *Code {
	c.buf.WriteByte(opI32Const)
	writeS32(&c.buf, v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf.WriteByte(opI64Const)
	writeS64(&c.buf, v)
	return c
}

func (c *Code) F32Const(v float32) *Code {
	c.buf.WriteByte(opF32Const)
	_ = binary.Write(&c.buf, binary.LittleEndian, math.Float32bits(v))
	return c
}

func (c *Code) LocalGet(idx uint32) *Code {
	c.buf.WriteByte(opLocalGet)
	writeU32(&c.buf, idx)
	return c
}

func (c *Code) Call(fn uint32) *Code {
	c.buf.WriteByte(opCall)
	writeU32(&c.buf, fn)
	return c
}

// Unreachable traps when executed.
func (c *Code) Unreachable() *Code {
	c.buf.WriteByte(opTrap)
	return c
}

func (c *Code) Drop() *Code {
	c.buf.WriteByte(opDrop)
	return c
}

// If opens a block without results that runs when the i32 on the stack is
// non-zero. Close it with End.
func (c *Code) If() *Code {
	c.buf.WriteByte(opIf)
	c.buf.WriteByte(blockVoid)
	return c
}

func (c *Code) End() *Code {
	c.buf.WriteByte(opEnd)
	return c
}

// Bytes returns the body, terminated with a final end opcode.
func (c *Code) Bytes() []byte {
	return append(append([]byte(nil), c.buf.Bytes()...), opEnd)
}
