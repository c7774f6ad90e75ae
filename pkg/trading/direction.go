package trading

import "github.com/pkg/errors"

// Direction is the caller-facing side of an order or position.
type Direction uint8

const (
	DirectionLong Direction = iota
	DirectionShort
)

var directionNames = []string{"long", "short"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	panic("invalid direction string conversion")
}

func (d Direction) MarshalJSON() ([]byte, error) {
	if int(d) >= len(directionNames) {
		return nil, errors.New("invalid direction json conversion")
	}
	return []byte(`"` + directionNames[d] + `"`), nil
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return errors.New("unsupported direction: " + string(data))
	}
	v, err := DirectionStrToType(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func DirectionStrToType(value string) (Direction, error) {
	for i, name := range directionNames {
		if name == value {
			return Direction(i), nil
		}
	}
	return 0, errors.New("unsupported direction: " + value)
}

func (d Direction) side() Side {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// Side is the raw buy/sell flag of the native protocol.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

var sideTable = codeTable[Side]{
	kind:  "side",
	codes: []byte{'0', '1'},
	names: []string{"buy", "sell"},
}

func (s Side) String() string                   { return sideTable.name(s) }
func (s Side) MarshalJSON() ([]byte, error)     { return sideTable.marshal(s) }
func (s *Side) UnmarshalJSON(data []byte) error { return sideTable.unmarshal(data, s) }

func (s Side) flip() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) direction() Direction {
	if s == SideSell {
		return DirectionShort
	}
	return DirectionLong
}

// OffsetFlag tells whether an order opens or closes a position.
type OffsetFlag uint8

const (
	OffsetOpen OffsetFlag = iota
	OffsetClose
	OffsetForceClose
	OffsetCloseToday
	OffsetCloseYesterday
)

var offsetTable = codeTable[OffsetFlag]{
	kind:  "offset flag",
	codes: []byte{'0', '1', '2', '3', '4'},
	names: []string{"open", "close", "forceClose", "closeToday", "closeYesterday"},
}

func (o OffsetFlag) String() string                   { return offsetTable.name(o) }
func (o OffsetFlag) MarshalJSON() ([]byte, error)     { return offsetTable.marshal(o) }
func (o *OffsetFlag) UnmarshalJSON(data []byte) error { return offsetTable.unmarshal(data, o) }

func (o OffsetFlag) isClose() bool {
	return o != OffsetOpen
}

// PositionDirection is the direction of a position record.
type PositionDirection uint8

const (
	PositionNet PositionDirection = iota
	PositionLong
	PositionShort
)

var positionDirectionTable = codeTable[PositionDirection]{
	kind:  "position direction",
	codes: []byte{'1', '2', '3'},
	names: []string{"net", "long", "short"},
}

func (p PositionDirection) String() string                   { return positionDirectionTable.name(p) }
func (p PositionDirection) MarshalJSON() ([]byte, error)     { return positionDirectionTable.marshal(p) }
func (p *PositionDirection) UnmarshalJSON(data []byte) error { return positionDirectionTable.unmarshal(data, p) }
