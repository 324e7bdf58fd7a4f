package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/dshills/streetsim-go/streets"
)

// The codec is a compact length-prefixed binary encoding: fixed-width
// big-endian integers, IEEE-754 bit patterns for floats, strings and
// id lists prefixed with a uint32 count. Both ends of the wire run
// this package, so no version negotiation is carried.

// ErrShortBuffer is returned when a payload ends before its declared
// content.
var ErrShortBuffer = errors.New("wire: buffer too short")

// EdgeLengthRequest asks for the length of the directed edge
// (From, To) on the full graph.
type EdgeLengthRequest struct {
	From streets.OSMID
	To   streets.OSMID
}

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *writer) f64(v float64) {
	w.u64(math.Float64bits(v))
}
func (w *writer) id(v streets.OSMID) { w.u64(uint64(v)) }
func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *writer) ids(v []streets.OSMID) {
	w.u32(uint32(len(v)))
	for _, id := range v {
		w.id(id)
	}
}
func (w *writer) flag(b bool) {
	if b {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *reader) id() streets.OSMID {
	return streets.OSMID(r.u64())
}

func (r *reader) str() string {
	n := int(r.u32())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) ids() []streets.OSMID {
	n := int(r.u32())
	if r.err != nil {
		return nil
	}
	// Guard against a corrupt count claiming more ids than the buffer
	// can hold.
	if n > (len(r.buf)-r.off)/8 {
		r.err = ErrShortBuffer
		return nil
	}
	out := make([]streets.OSMID, n)
	for i := range out {
		out[i] = r.id()
	}
	return out
}

func (r *reader) flag() bool {
	return r.u8() == 1
}

// EncodeVehicle serializes a vehicle for the wire.
func EncodeVehicle(v *streets.Vehicle) []byte {
	w := &writer{}
	w.str(v.ID)
	w.ids(v.PathIDs)
	w.f64(v.Speed)
	w.f64(v.Delta)
	w.f64(v.DistanceRemaining)
	w.id(v.PrevID)
	w.id(v.NextID)
	w.flag(v.IsParked)
	w.flag(v.MarkedForDeletion)
	w.u64(v.Steps)
	return w.buf
}

// DecodeVehicle deserializes a vehicle payload.
func DecodeVehicle(buf []byte) (*streets.Vehicle, error) {
	r := &reader{buf: buf}
	v := &streets.Vehicle{
		ID:                r.str(),
		PathIDs:           r.ids(),
		Speed:             r.f64(),
		Delta:             r.f64(),
		DistanceRemaining: r.f64(),
		PrevID:            r.id(),
		NextID:            r.id(),
		IsParked:          r.flag(),
		MarkedForDeletion: r.flag(),
		Steps:             r.u64(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}

// EncodeEdgeLengthRequest serializes an edge-length query.
func EncodeEdgeLengthRequest(req EdgeLengthRequest) []byte {
	w := &writer{}
	w.id(req.From)
	w.id(req.To)
	return w.buf
}

// DecodeEdgeLengthRequest deserializes an edge-length query.
func DecodeEdgeLengthRequest(buf []byte) (EdgeLengthRequest, error) {
	r := &reader{buf: buf}
	req := EdgeLengthRequest{From: r.id(), To: r.id()}
	if r.err != nil {
		return EdgeLengthRequest{}, r.err
	}
	return req, nil
}

// EncodeFloat64 serializes an edge-length response.
func EncodeFloat64(v float64) []byte {
	w := &writer{}
	w.f64(v)
	return w.buf
}

// DecodeFloat64 deserializes an edge-length response.
func DecodeFloat64(buf []byte) (float64, error) {
	r := &reader{buf: buf}
	v := r.f64()
	if r.err != nil {
		return 0, r.err
	}
	return v, nil
}
