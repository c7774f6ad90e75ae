package trading

// PriceType is the price condition of an order.
type PriceType uint8

const (
	PriceTypeAny PriceType = iota
	PriceTypeLimit
	PriceTypeBest
	PriceTypeFiveLevel
)

var priceTypeTable = codeTable[PriceType]{
	kind:  "price type",
	codes: []byte{'1', '2', '3', 'G'},
	names: []string{"any", "limit", "best", "fiveLevel"},
}

func (pt PriceType) String() string                   { return priceTypeTable.name(pt) }
func (pt PriceType) MarshalJSON() ([]byte, error)     { return priceTypeTable.marshal(pt) }
func (pt *PriceType) UnmarshalJSON(data []byte) error { return priceTypeTable.unmarshal(data, pt) }

// TimeCondition is how long an order may stay on the book.
type TimeCondition uint8

const (
	TimeConditionIOC TimeCondition = iota
	TimeConditionGFS
	TimeConditionGFD
	TimeConditionGTD
	TimeConditionGTC
	TimeConditionGFA
)

var timeConditionTable = codeTable[TimeCondition]{
	kind:  "time condition",
	codes: []byte{'1', '2', '3', '4', '5', '6'},
	names: []string{"IOC", "GFS", "GFD", "GTD", "GTC", "GFA"},
}

func (tc TimeCondition) String() string                   { return timeConditionTable.name(tc) }
func (tc TimeCondition) MarshalJSON() ([]byte, error)     { return timeConditionTable.marshal(tc) }
func (tc *TimeCondition) UnmarshalJSON(data []byte) error { return timeConditionTable.unmarshal(data, tc) }

func TimeConditionStrToType(value string) (TimeCondition, error) {
	return timeConditionTable.parse(value)
}

// VolumeCondition is the fill requirement of an immediate order.
type VolumeCondition uint8

const (
	VolumeConditionAny VolumeCondition = iota
	VolumeConditionMin
	VolumeConditionComplete
)

var volumeConditionTable = codeTable[VolumeCondition]{
	kind:  "volume condition",
	codes: []byte{'1', '2', '3'},
	names: []string{"any", "min", "complete"},
}

func (vc VolumeCondition) String() string                   { return volumeConditionTable.name(vc) }
func (vc VolumeCondition) MarshalJSON() ([]byte, error)     { return volumeConditionTable.marshal(vc) }
func (vc *VolumeCondition) UnmarshalJSON(data []byte) error { return volumeConditionTable.unmarshal(data, vc) }

// OptionType marks an instrument as a call or put option.
type OptionType uint8

const (
	OptionNone OptionType = iota
	OptionCall
	OptionPut
)

var optionTypeTable = codeTable[OptionType]{
	kind:  "option type",
	codes: []byte{0, '1', '2'},
	names: []string{"", "call", "put"},
}

func (ot OptionType) String() string                   { return optionTypeTable.name(ot) }
func (ot OptionType) MarshalJSON() ([]byte, error)     { return optionTypeTable.marshal(ot) }
func (ot *OptionType) UnmarshalJSON(data []byte) error { return optionTypeTable.unmarshal(data, ot) }
