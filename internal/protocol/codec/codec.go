package codec

import (
	"fmt"
	"reflect"
)

// Codec encodes and decodes values of T against a schema validated once at
// bind time. A Codec is immutable and safe for concurrent use.
type Codec[T any] struct {
	schema *Type
	root   node
}

// Bind validates that schema can describe T and compiles the pair.
func Bind[T any](schema *Type) (*Codec[T], error) {
	root, err := bind(schema, reflect.TypeOf((*T)(nil)).Elem(), "")
	if err != nil {
		return nil, err
	}
	return &Codec[T]{schema: schema, root: root}, nil
}

// MustBind is Bind for package-level tables; it panics on a schema mismatch.
func MustBind[T any](schema *Type) *Codec[T] {
	c, err := Bind[T](schema)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec[T]) Schema() *Type {
	return c.schema
}

// Encode returns a freshly allocated encoding of v.
func (c *Codec[T]) Encode(v T) ([]byte, error) {
	size, ok := c.schema.FixedSize()
	if !ok {
		size = 16
	}
	w := NewWriter(size)
	if err := c.Append(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Append writes the encoding of v to w.
func (c *Codec[T]) Append(w *Writer, v T) error {
	return c.root.encode(w, reflect.ValueOf(&v).Elem())
}

// Decode reads exactly one value from b. Input left over after the value is
// an error.
func (c *Codec[T]) Decode(b []byte) (T, error) {
	r := NewReader(b)
	v, err := c.Read(r)
	if err != nil {
		return v, err
	}
	if r.Remaining() != 0 {
		var zero T
		return zero, fmt.Errorf("%w: %d bytes at pos %d", ErrTrailingBytes, r.Remaining(), r.Pos())
	}
	return v, nil
}

// Read decodes one value from r and leaves the cursor after it.
func (c *Codec[T]) Read(r *Reader) (T, error) {
	var v T
	if err := c.root.decode(r, reflect.ValueOf(&v).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Marshal binds schema to the dynamic type of v and encodes it. Prefer a
// bound Codec on hot paths.
func Marshal(schema *Type, v any) ([]byte, error) {
	if v == nil {
		return nil, &SchemaError{Reason: "nil value"}
	}
	rv := reflect.ValueOf(v)
	root, err := bind(schema, rv.Type(), "")
	if err != nil {
		return nil, err
	}
	w := NewWriter(16)
	if err := root.encode(w, rv); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes b into the value out points to.
func Unmarshal(schema *Type, b []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &SchemaError{Reason: fmt.Sprintf("Unmarshal needs a non-nil pointer, got %T", out)}
	}
	root, err := bind(schema, rv.Type().Elem(), "")
	if err != nil {
		return err
	}
	r := NewReader(b)
	if err := root.decode(r, rv.Elem()); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d bytes at pos %d", ErrTrailingBytes, r.Remaining(), r.Pos())
	}
	return nil
}
