package tpspace

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// holoBlendRecordVersion is the only parameter record layout understood by
// this implementation.
const holoBlendRecordVersion byte = 0

// MarshalBinary encodes the parameter record: a version byte followed by
// ramp time, max linear speed, max angular speed and the turning radius
// reference as little-endian float64s, in that order.
func (ptg *ptgHoloBlend) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 1+4*8))
	buf.WriteByte(holoBlendRecordVersion)
	for _, v := range []float64{ptg.tRamp, ptg.vMax, ptg.wMax, ptg.turnRadRef} {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a parameter record written by MarshalBinary. Any
// unrecognized version is a hard error, never a partial read.
func (ptg *ptgHoloBlend) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty holonomic blend parameter record")
	}
	if data[0] != holoBlendRecordVersion {
		return errors.Errorf("unknown holonomic blend parameter record version %d", data[0])
	}
	r := bytes.NewReader(data[1:])
	for _, field := range []*float64{&ptg.tRamp, &ptg.vMax, &ptg.wMax, &ptg.turnRadRef} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return errors.Wrap(err, "short holonomic blend parameter record")
		}
	}
	return nil
}

// NewHoloBlendPTGFromBinary restores a holonomic blend PTG from a parameter
// record. The path discretization and reference distance are owned by the
// enclosing trajectory family and are not part of the record.
func NewHoloBlendPTGFromBinary(data []byte, alphaCount uint, refDist float64) (PTG, error) {
	ptg := &ptgHoloBlend{alphaCount: alphaCount, refDist: refDist}
	if err := ptg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if err := ptg.validate(); err != nil {
		return nil, err
	}
	return ptg, nil
}
