package param

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/rs/zerolog/log"
)

// ID is a device-defined 16-bit parameter identifier.
type ID uint16

const (
	IDGetCuttingHeightReq  ID = 470
	IDGetCuttingHeightResp ID = 471
)

var (
	ErrUnsupportedParam = errors.New("param: unsupported parameter")
	ErrDuplicateID      = errors.New("param: duplicate parameter id")
	ErrPayloadMismatch  = errors.New("param: payload does not match id")
)

// UnsupportedError reports a parameter id missing from the registry.
type UnsupportedError struct {
	ID ID
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("param: unsupported parameter %d", uint16(e.ID))
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedParam
}

// Payload is the typed value of one parameter record.
type Payload interface {
	ParamID() ID
}

// Entry binds one parameter id to its payload codec.
type Entry struct {
	ID     ID
	Name   string
	Schema *codec.Type
	Encode func(Payload) ([]byte, error)
	Decode func([]byte) (Payload, error)
}

// Empty builds an entry for a parameter whose payload carries no data.
func Empty[T Payload](id ID, name string) Entry {
	return Entry{
		ID:     id,
		Name:   name,
		Schema: codec.Unit(),
		Encode: func(p Payload) ([]byte, error) {
			if _, ok := p.(T); !ok {
				return nil, fmt.Errorf("%w: %d got %T", ErrPayloadMismatch, uint16(id), p)
			}
			return []byte{}, nil
		},
		Decode: func(b []byte) (Payload, error) {
			if len(b) != 0 {
				return nil, fmt.Errorf("%w: %d bytes for empty parameter %d", codec.ErrTrailingBytes, len(b), uint16(id))
			}
			var zero T
			return zero, nil
		},
	}
}

// Record builds an entry for a parameter whose payload is encoded by schema.
// It panics if schema does not bind to T, so tables fail at init.
func Record[T Payload](id ID, name string, schema *codec.Type) Entry {
	c := codec.MustBind[T](schema)
	return Entry{
		ID:     id,
		Name:   name,
		Schema: schema,
		Encode: func(p Payload) ([]byte, error) {
			v, ok := p.(T)
			if !ok {
				return nil, fmt.Errorf("%w: %d got %T", ErrPayloadMismatch, uint16(id), p)
			}
			return c.Encode(v)
		},
		Decode: func(b []byte) (Payload, error) {
			v, err := c.Decode(b)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Registry maps parameter ids to payload codecs. It is read-only after
// construction.
type Registry struct {
	entries map[ID]Entry
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[ID]Entry, len(entries))}
	for _, e := range entries {
		if _, dup := r.entries[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, uint16(e.ID))
		}
		if e.Encode == nil || e.Decode == nil {
			return nil, fmt.Errorf("param: entry %d missing codec", uint16(e.ID))
		}
		r.entries[e.ID] = e
	}
	return r, nil
}

var defaultRegistry = mustRegistry(
	Empty[GetCuttingHeightReq](IDGetCuttingHeightReq, "get cutting height request"),
	Record[GetCuttingHeightResp](IDGetCuttingHeightResp, "get cutting height response", getCuttingHeightRespSchema),
)

func mustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of parameters known to this package.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id ID) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Encode serializes the payload of p without the id/length prefix.
func (r *Registry) Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrPayloadMismatch)
	}
	e, ok := r.entries[p.ParamID()]
	if !ok {
		return nil, &UnsupportedError{ID: p.ParamID()}
	}
	return e.Encode(p)
}

// Decode reconstructs the payload for id from b.
func (r *Registry) Decode(id ID, b []byte) (Payload, error) {
	e, ok := r.entries[id]
	if !ok {
		log.Debug().Uint16("param_id", uint16(id)).Int("len", len(b)).Msg("param.Decode unsupported id")
		return nil, &UnsupportedError{ID: id}
	}
	p, err := e.Decode(b)
	if err != nil {
		log.Debug().Err(err).Uint16("param_id", uint16(id)).Msg("param.Decode failed")
		return nil, fmt.Errorf("param %d: %w", uint16(id), err)
	}
	return p, nil
}

func (id ID) String() string {
	if e, ok := defaultRegistry.entries[id]; ok {
		return e.Name
	}
	return fmt.Sprintf("param(%d)", uint16(id))
}
