package codec

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// node is a schema node compiled against a concrete Go type.
type node interface {
	encode(w *Writer, v reflect.Value) error
	decode(r *Reader, v reflect.Value) error
}

func bind(t *Type, rt reflect.Type, path string) (node, error) {
	if t == nil {
		return nil, &SchemaError{Path: path, Reason: "nil type"}
	}
	if t.Kind == KindAny {
		return anyNode{}, nil
	}
	if want, ok := scalarKinds[t.Kind]; ok {
		if rt.Kind() != want {
			return nil, mismatch(path, t, rt)
		}
		return scalarNode{kind: t.Kind}, nil
	}
	switch t.Kind {
	case KindUnit:
		if rt.Kind() != reflect.Struct {
			return nil, mismatch(path, t, rt)
		}
		return unitNode{}, nil
	case KindBytes:
		if rt.Kind() != reflect.Slice || rt.Elem().Kind() != reflect.Uint8 {
			return nil, mismatch(path, t, rt)
		}
		return bytesNode{}, nil
	case KindOption:
		if rt.Kind() != reflect.Pointer {
			return nil, mismatch(path, t, rt)
		}
		elem, err := bind(t.Elem, rt.Elem(), path+"?")
		if err != nil {
			return nil, err
		}
		return optionNode{elem: elem, rt: rt}, nil
	case KindSeq:
		if rt.Kind() != reflect.Slice {
			return nil, mismatch(path, t, rt)
		}
		elem, err := bind(t.Elem, rt.Elem(), path+"[]")
		if err != nil {
			return nil, err
		}
		return seqNode{elem: elem, rt: rt, elemMin: minWireSize(t.Elem)}, nil
	case KindTuple:
		return bindTuple(t, rt, path)
	case KindStruct:
		if rt.Kind() != reflect.Struct {
			return nil, mismatch(path, t, rt)
		}
		return bindFields(t.Fields, rt, joinPath(path, t.Name))
	case KindVariant:
		return bindVariant(t, rt, path)
	case KindMap:
		if rt.Kind() != reflect.Map {
			return nil, mismatch(path, t, rt)
		}
		key, err := bind(t.Key, rt.Key(), path+"{key}")
		if err != nil {
			return nil, err
		}
		val, err := bind(t.Elem, rt.Elem(), path+"{value}")
		if err != nil {
			return nil, err
		}
		return mapNode{key: key, val: val, rt: rt, entryMin: minWireSize(t.Key) + minWireSize(t.Elem)}, nil
	default:
		return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("unknown kind %s", t.Kind)}
	}
}

var scalarKinds = map[Kind]reflect.Kind{
	KindBool:   reflect.Bool,
	KindU8:     reflect.Uint8,
	KindU16:    reflect.Uint16,
	KindU32:    reflect.Uint32,
	KindU64:    reflect.Uint64,
	KindI8:     reflect.Int8,
	KindI16:    reflect.Int16,
	KindI32:    reflect.Int32,
	KindI64:    reflect.Int64,
	KindF32:    reflect.Float32,
	KindF64:    reflect.Float64,
	KindChar:   reflect.Int32,
	KindString: reflect.String,
}

func mismatch(path string, t *Type, rt reflect.Type) error {
	return &SchemaError{Path: path, Reason: fmt.Sprintf("%s cannot bind to Go %s", t, rt)}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	if name == "" {
		return path
	}
	return path + "." + name
}

func bindTuple(t *Type, rt reflect.Type, path string) (node, error) {
	elems := make([]node, len(t.Elems))
	switch rt.Kind() {
	case reflect.Array:
		if rt.Len() != len(t.Elems) {
			return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("tuple arity %d, Go array length %d", len(t.Elems), rt.Len())}
		}
		for i, e := range t.Elems {
			n, err := bind(e, rt.Elem(), fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			elems[i] = n
		}
		return tupleNode{elems: elems, index: nil}, nil
	case reflect.Struct:
		if rt.NumField() != len(t.Elems) {
			return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("tuple arity %d, Go struct has %d fields", len(t.Elems), rt.NumField())}
		}
		index := make([]int, len(t.Elems))
		for i, e := range t.Elems {
			sf := rt.Field(i)
			if !sf.IsExported() {
				return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("tuple field %s is unexported", sf.Name)}
			}
			n, err := bind(e, sf.Type, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			elems[i] = n
			index[i] = i
		}
		return tupleNode{elems: elems, index: index}, nil
	default:
		return nil, mismatch(path, t, rt)
	}
}

// bindFields matches schema fields to Go struct fields by `wire` tag, then by
// name with underscores dropped and case folded.
func bindFields(fields []Field, rt reflect.Type, path string) (structNode, error) {
	byTag := make(map[string]int)
	byName := make(map[string]int)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, ok := sf.Tag.Lookup("wire"); ok && tag != "" && tag != "-" {
			byTag[tag] = i
		}
		if sf.Tag.Get("wire") != "-" {
			byName[normalizeName(sf.Name)] = i
		}
	}

	seen := make(map[string]struct{}, len(fields))
	out := structNode{fields: make([]boundField, 0, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return structNode{}, &SchemaError{Path: path, Reason: "empty field name"}
		}
		if _, dup := seen[f.Name]; dup {
			return structNode{}, &SchemaError{Path: path, Reason: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		seen[f.Name] = struct{}{}

		idx, ok := byTag[f.Name]
		if !ok {
			idx, ok = byName[normalizeName(f.Name)]
		}
		if !ok {
			return structNode{}, &SchemaError{Path: joinPath(path, f.Name), Reason: fmt.Sprintf("no matching field in Go %s", rt)}
		}
		n, err := bind(f.Type, rt.Field(idx).Type, joinPath(path, f.Name))
		if err != nil {
			return structNode{}, err
		}
		out.fields = append(out.fields, boundField{index: idx, node: n})
	}
	return out, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func bindVariant(t *Type, rt reflect.Type, path string) (node, error) {
	if rt.Kind() != reflect.Interface {
		return nil, mismatch(path, t, rt)
	}
	if len(t.Cases) == 0 {
		return nil, &SchemaError{Path: path, Reason: "variant has no cases"}
	}
	out := variantNode{
		cases:   make([]boundCase, len(t.Cases)),
		byType:  make(map[reflect.Type]int, len(t.Cases)),
		variant: t.Name,
	}
	for i, c := range t.Cases {
		casePath := joinPath(joinPath(path, t.Name), c.Name)
		if c.Go == nil {
			return nil, &SchemaError{Path: casePath, Reason: "case has no Go type"}
		}
		if !c.Go.Implements(rt) {
			return nil, &SchemaError{Path: casePath, Reason: fmt.Sprintf("Go %s does not implement %s", c.Go, rt)}
		}
		if _, dup := out.byType[c.Go]; dup {
			return nil, &SchemaError{Path: casePath, Reason: fmt.Sprintf("Go %s used by more than one case", c.Go)}
		}
		structType := c.Go
		if structType.Kind() == reflect.Pointer {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			return nil, &SchemaError{Path: casePath, Reason: fmt.Sprintf("case Go %s is not a struct", c.Go)}
		}
		fields, err := bindFields(c.Fields, structType, casePath)
		if err != nil {
			return nil, err
		}
		out.cases[i] = boundCase{goType: c.Go, fields: fields}
		out.byType[c.Go] = i
	}
	return out, nil
}

// minWireSize is a lower bound on the encoded size of any value of t.
func minWireSize(t *Type) int {
	if n, ok := t.FixedSize(); ok {
		return n
	}
	switch t.Kind {
	case KindOption:
		return 1
	case KindString, KindBytes, KindSeq, KindMap, KindVariant:
		return 4
	case KindTuple:
		total := 0
		for _, e := range t.Elems {
			total += minWireSize(e)
		}
		return total
	case KindStruct:
		total := 0
		for _, f := range t.Fields {
			total += minWireSize(f.Type)
		}
		return total
	default:
		return 0
	}
}

// MaxZeroWidthCount caps sequences and maps whose elements encode to zero
// bytes, since the input length cannot bound their count.
const MaxZeroWidthCount = 1 << 16

// checkCount rejects element counts the remaining input cannot hold.
func checkCount(r *Reader, count uint32, elemMin int) error {
	if elemMin == 0 {
		if count > MaxZeroWidthCount {
			return &CountError{Pos: r.Pos(), Count: count, Max: MaxZeroWidthCount}
		}
		return nil
	}
	need := uint64(count) * uint64(elemMin)
	if need > uint64(r.Remaining()) {
		return &TruncatedError{Pos: r.Pos(), Need: int(min(need, uint64(^uint32(0)))), Have: r.Remaining()}
	}
	return nil
}

type anyNode struct{}

func (anyNode) encode(*Writer, reflect.Value) error { return ErrUnsupported }
func (anyNode) decode(*Reader, reflect.Value) error { return ErrUnsupported }

type unitNode struct{}

func (unitNode) encode(*Writer, reflect.Value) error { return nil }
func (unitNode) decode(*Reader, reflect.Value) error { return nil }

type scalarNode struct {
	kind Kind
}

func (n scalarNode) encode(w *Writer, v reflect.Value) error {
	switch n.kind {
	case KindBool:
		w.WriteBool(v.Bool())
	case KindU8:
		w.WriteU8(uint8(v.Uint()))
	case KindU16:
		w.WriteU16(uint16(v.Uint()))
	case KindU32:
		w.WriteU32(uint32(v.Uint()))
	case KindU64:
		w.WriteU64(v.Uint())
	case KindI8:
		w.WriteU8(uint8(v.Int()))
	case KindI16:
		w.WriteU16(uint16(v.Int()))
	case KindI32:
		w.WriteU32(uint32(v.Int()))
	case KindI64:
		w.WriteU64(uint64(v.Int()))
	case KindF32:
		w.WriteF32(float32(v.Float()))
	case KindF64:
		w.WriteF64(v.Float())
	case KindChar:
		w.WriteChar(rune(v.Int()))
	case KindString:
		return w.WriteString(v.String())
	}
	return nil
}

func (n scalarNode) decode(r *Reader, v reflect.Value) error {
	switch n.kind {
	case KindBool:
		b, err := r.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case KindU8:
		x, err := r.ReadU8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case KindU16:
		x, err := r.ReadU16()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case KindU32:
		x, err := r.ReadU32()
		if err != nil {
			return err
		}
		v.SetUint(uint64(x))
	case KindU64:
		x, err := r.ReadU64()
		if err != nil {
			return err
		}
		v.SetUint(x)
	case KindI8:
		x, err := r.ReadU8()
		if err != nil {
			return err
		}
		v.SetInt(int64(int8(x)))
	case KindI16:
		x, err := r.ReadU16()
		if err != nil {
			return err
		}
		v.SetInt(int64(int16(x)))
	case KindI32:
		x, err := r.ReadU32()
		if err != nil {
			return err
		}
		v.SetInt(int64(int32(x)))
	case KindI64:
		x, err := r.ReadU64()
		if err != nil {
			return err
		}
		v.SetInt(int64(x))
	case KindF32:
		x, err := r.ReadF32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(x))
	case KindF64:
		x, err := r.ReadF64()
		if err != nil {
			return err
		}
		v.SetFloat(x)
	case KindChar:
		x, err := r.ReadChar()
		if err != nil {
			return err
		}
		v.SetInt(int64(x))
	case KindString:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
	}
	return nil
}

type bytesNode struct{}

func (bytesNode) encode(w *Writer, v reflect.Value) error {
	return w.WriteBytes(v.Bytes())
}

func (bytesNode) decode(r *Reader, v reflect.Value) error {
	b, err := r.ReadBytes()
	if err != nil {
		return err
	}
	v.SetBytes(b)
	return nil
}

type optionNode struct {
	elem node
	rt   reflect.Type
}

func (n optionNode) encode(w *Writer, v reflect.Value) error {
	if v.IsNil() {
		w.WriteU8(0)
		return nil
	}
	w.WriteU8(1)
	return n.elem.encode(w, v.Elem())
}

func (n optionNode) decode(r *Reader, v reflect.Value) error {
	present, err := r.ReadOptionTag()
	if err != nil {
		return err
	}
	if !present {
		v.Set(reflect.Zero(n.rt))
		return nil
	}
	p := reflect.New(n.rt.Elem())
	if err := n.elem.decode(r, p.Elem()); err != nil {
		return err
	}
	v.Set(p)
	return nil
}

type seqNode struct {
	elem    node
	rt      reflect.Type
	elemMin int
}

func (n seqNode) encode(w *Writer, v reflect.Value) error {
	if uint64(v.Len()) > uint64(^uint32(0)) {
		return ErrTooLong
	}
	if n.elemMin == 0 && v.Len() > MaxZeroWidthCount {
		return &CountError{Count: uint32(v.Len()), Max: MaxZeroWidthCount}
	}
	w.WriteU32(uint32(v.Len()))
	for i := 0; i < v.Len(); i++ {
		if err := n.elem.encode(w, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (n seqNode) decode(r *Reader, v reflect.Value) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	if err := checkCount(r, count, n.elemMin); err != nil {
		return err
	}
	capacity := min(int(count), r.Remaining())
	out := reflect.MakeSlice(n.rt, 0, capacity)
	for i := uint32(0); i < count; i++ {
		elem := reflect.New(n.rt.Elem()).Elem()
		if err := n.elem.decode(r, elem); err != nil {
			return err
		}
		out = reflect.Append(out, elem)
	}
	v.Set(out)
	return nil
}

// tupleNode covers arrays (index nil) and positional structs.
type tupleNode struct {
	elems []node
	index []int
}

func (n tupleNode) elem(v reflect.Value, i int) reflect.Value {
	if n.index == nil {
		return v.Index(i)
	}
	return v.Field(n.index[i])
}

func (n tupleNode) encode(w *Writer, v reflect.Value) error {
	for i, e := range n.elems {
		if err := e.encode(w, n.elem(v, i)); err != nil {
			return err
		}
	}
	return nil
}

func (n tupleNode) decode(r *Reader, v reflect.Value) error {
	for i, e := range n.elems {
		if err := e.decode(r, n.elem(v, i)); err != nil {
			return err
		}
	}
	return nil
}

type boundField struct {
	index int
	node  node
}

type structNode struct {
	fields []boundField
}

func (n structNode) encode(w *Writer, v reflect.Value) error {
	for _, f := range n.fields {
		if err := f.node.encode(w, v.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (n structNode) decode(r *Reader, v reflect.Value) error {
	for _, f := range n.fields {
		if err := f.node.decode(r, v.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

type boundCase struct {
	goType reflect.Type
	fields structNode
}

type variantNode struct {
	variant string
	cases   []boundCase
	byType  map[reflect.Type]int
}

func (n variantNode) encode(w *Writer, v reflect.Value) error {
	if v.IsNil() {
		return fmt.Errorf("%w: nil %s", ErrUnknownVariant, n.variant)
	}
	dyn := v.Elem()
	idx, ok := n.byType[dyn.Type()]
	if !ok {
		return fmt.Errorf("%w: %s has no case for Go %s", ErrUnknownVariant, n.variant, dyn.Type())
	}
	w.WriteU32(uint32(idx))
	if dyn.Kind() == reflect.Pointer {
		if dyn.IsNil() {
			return fmt.Errorf("%w: nil %s case %s", ErrUnknownVariant, n.variant, dyn.Type())
		}
		dyn = dyn.Elem()
	}
	return n.cases[idx].fields.encode(w, dyn)
}

func (n variantNode) decode(r *Reader, v reflect.Value) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	if uint64(idx) >= uint64(len(n.cases)) {
		return fmt.Errorf("%w: %s index %d", ErrUnknownVariant, n.variant, idx)
	}
	c := n.cases[idx]
	if c.goType.Kind() == reflect.Pointer {
		p := reflect.New(c.goType.Elem())
		if err := c.fields.decode(r, p.Elem()); err != nil {
			return err
		}
		v.Set(p)
		return nil
	}
	val := reflect.New(c.goType).Elem()
	if err := c.fields.decode(r, val); err != nil {
		return err
	}
	v.Set(val)
	return nil
}

type mapNode struct {
	key      node
	val      node
	rt       reflect.Type
	entryMin int
}

// encode writes entries ordered by their encoded key bytes so equal maps
// always produce equal output.
func (n mapNode) encode(w *Writer, v reflect.Value) error {
	if uint64(v.Len()) > uint64(^uint32(0)) {
		return ErrTooLong
	}
	type entry struct {
		key []byte
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		kw := NewWriter(8)
		if err := n.key.encode(kw, iter.Key()); err != nil {
			return err
		}
		entries = append(entries, entry{key: kw.Bytes(), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	w.WriteU32(uint32(len(entries)))
	for _, e := range entries {
		w.WriteRaw(e.key)
		if err := n.val.encode(w, e.val); err != nil {
			return err
		}
	}
	return nil
}

func (n mapNode) decode(r *Reader, v reflect.Value) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	if err := checkCount(r, count, n.entryMin); err != nil {
		return err
	}
	out := reflect.MakeMapWithSize(n.rt, min(int(count), r.Remaining()))
	for i := uint32(0); i < count; i++ {
		k := reflect.New(n.rt.Key()).Elem()
		if err := n.key.decode(r, k); err != nil {
			return err
		}
		val := reflect.New(n.rt.Elem()).Elem()
		if err := n.val.decode(r, val); err != nil {
			return err
		}
		out.SetMapIndex(k, val)
	}
	v.Set(out)
	return nil
}
