package codec

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the wire shape of a schema node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindChar
	KindString
	KindBytes
	KindOption
	KindSeq
	KindTuple
	KindStruct
	KindVariant
	KindMap
	KindAny
)

var kindNames = map[Kind]string{
	KindUnit:    "unit",
	KindBool:    "bool",
	KindU8:      "u8",
	KindU16:     "u16",
	KindU32:     "u32",
	KindU64:     "u64",
	KindI8:      "i8",
	KindI16:     "i16",
	KindI32:     "i32",
	KindI64:     "i64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindChar:    "char",
	KindString:  "string",
	KindBytes:   "bytes",
	KindOption:  "option",
	KindSeq:     "seq",
	KindTuple:   "tuple",
	KindStruct:  "struct",
	KindVariant: "variant",
	KindMap:     "map",
	KindAny:     "any",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Field is one named, ordered member of a struct or variant case.
type Field struct {
	Name string
	Type *Type
}

// Case is one alternative of a variant. Its position is its wire index.
type Case struct {
	Name   string
	Go     reflect.Type
	Fields []Field
}

// Type describes the wire shape of a value. Field and case order is the
// wire contract.
type Type struct {
	Kind   Kind
	Name   string
	Elem   *Type
	Key    *Type
	Elems  []*Type
	Fields []Field
	Cases  []Case
}

var (
	unitType   = &Type{Kind: KindUnit}
	boolType   = &Type{Kind: KindBool}
	u8Type     = &Type{Kind: KindU8}
	u16Type    = &Type{Kind: KindU16}
	u32Type    = &Type{Kind: KindU32}
	u64Type    = &Type{Kind: KindU64}
	i8Type     = &Type{Kind: KindI8}
	i16Type    = &Type{Kind: KindI16}
	i32Type    = &Type{Kind: KindI32}
	i64Type    = &Type{Kind: KindI64}
	f32Type    = &Type{Kind: KindF32}
	f64Type    = &Type{Kind: KindF64}
	charType   = &Type{Kind: KindChar}
	stringType = &Type{Kind: KindString}
	bytesType  = &Type{Kind: KindBytes}
	anyType    = &Type{Kind: KindAny}
)

func Unit() *Type   { return unitType }
func Bool() *Type   { return boolType }
func U8() *Type     { return u8Type }
func U16() *Type    { return u16Type }
func U32() *Type    { return u32Type }
func U64() *Type    { return u64Type }
func I8() *Type     { return i8Type }
func I16() *Type    { return i16Type }
func I32() *Type    { return i32Type }
func I64() *Type    { return i64Type }
func F32() *Type    { return f32Type }
func F64() *Type    { return f64Type }
func Char() *Type   { return charType }
func String() *Type { return stringType }
func Bytes() *Type  { return bytesType }

// Any stands for a value whose shape is only known at runtime. Binding
// succeeds but every encode or decode through it fails with ErrUnsupported.
func Any() *Type { return anyType }

func Option(elem *Type) *Type { return &Type{Kind: KindOption, Elem: elem} }
func Seq(elem *Type) *Type    { return &Type{Kind: KindSeq, Elem: elem} }
func Tuple(elems ...*Type) *Type {
	return &Type{Kind: KindTuple, Elems: elems}
}
func Map(key, value *Type) *Type {
	return &Type{Kind: KindMap, Key: key, Elem: value}
}

// Struct declares a record whose fields are written in the given order.
func Struct(name string, fields ...Field) *Type {
	return &Type{Kind: KindStruct, Name: name, Fields: fields}
}

// Variant declares a tagged union. Cases are identified on the wire by index.
func Variant(name string, cases ...Case) *Type {
	return &Type{Kind: KindVariant, Name: name, Cases: cases}
}

// F is shorthand for a struct or case field.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// CaseOf declares a variant case backed by the Go struct type of proto.
func CaseOf(name string, proto any, fields ...Field) Case {
	return Case{Name: name, Go: reflect.TypeOf(proto), Fields: fields}
}

// FixedSize returns the encoded size of t when it does not depend on the
// value, and false otherwise.
func (t *Type) FixedSize() (int, bool) {
	switch t.Kind {
	case KindUnit:
		return 0, true
	case KindBool, KindU8, KindI8, KindChar:
		return 1, true
	case KindU16, KindI16:
		return 2, true
	case KindU32, KindI32, KindF32:
		return 4, true
	case KindU64, KindI64, KindF64:
		return 8, true
	case KindTuple:
		return sumFixed(t.Elems)
	case KindStruct:
		elems := make([]*Type, len(t.Fields))
		for i, f := range t.Fields {
			elems[i] = f.Type
		}
		return sumFixed(elems)
	default:
		return 0, false
	}
}

func sumFixed(elems []*Type) (int, bool) {
	total := 0
	for _, e := range elems {
		n, ok := e.FixedSize()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

// String renders the schema, e.g. struct Param471{return_code:u8, ...}.
func (t *Type) String() string {
	var b strings.Builder
	t.format(&b)
	return b.String()
}

func (t *Type) format(b *strings.Builder) {
	switch t.Kind {
	case KindOption, KindSeq:
		b.WriteString(t.Kind.String())
		b.WriteByte('<')
		t.Elem.format(b)
		b.WriteByte('>')
	case KindMap:
		b.WriteString("map<")
		t.Key.format(b)
		b.WriteString(", ")
		t.Elem.format(b)
		b.WriteByte('>')
	case KindTuple:
		b.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.format(b)
		}
		b.WriteByte(')')
	case KindStruct:
		b.WriteString("struct ")
		b.WriteString(t.Name)
		formatFields(b, t.Fields)
	case KindVariant:
		b.WriteString("variant ")
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, c := range t.Cases {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(c.Name)
			if len(c.Fields) > 0 {
				formatFields(b, c.Fields)
			}
		}
		b.WriteByte('}')
	default:
		b.WriteString(t.Kind.String())
	}
}

func formatFields(b *strings.Builder, fields []Field) {
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		f.Type.format(b)
	}
	b.WriteByte('}')
}
