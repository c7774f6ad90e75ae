package trading

// OrderStatus is the trade state of an order as reported by the exchange.
type OrderStatus uint8

const (
	OrderStatusAllTraded OrderStatus = iota
	OrderStatusPartTradedQueueing
	OrderStatusPartTradedNotQueueing
	OrderStatusNoTradeQueueing
	OrderStatusNoTradeNotQueueing
	OrderStatusCanceled
	OrderStatusUnknown
	OrderStatusNotTouched
	OrderStatusTouched
)

var orderStatusTable = codeTable[OrderStatus]{
	kind:  "order status",
	codes: []byte{'0', '1', '2', '3', '4', '5', 'a', 'b', 'c'},
	names: []string{
		"allTraded",
		"partTradedQueueing",
		"partTradedNotQueueing",
		"noTradeQueueing",
		"noTradeNotQueueing",
		"canceled",
		"unknown",
		"notTouched",
		"touched",
	},
}

func (os OrderStatus) String() string                   { return orderStatusTable.name(os) }
func (os OrderStatus) MarshalJSON() ([]byte, error)     { return orderStatusTable.marshal(os) }
func (os *OrderStatus) UnmarshalJSON(data []byte) error { return orderStatusTable.unmarshal(data, os) }

func OrderStatusStrToType(value string) (OrderStatus, error) {
	return orderStatusTable.parse(value)
}

// isFinished reports a terminal status: nothing more will trade.
func (os OrderStatus) isFinished() bool {
	return os == OrderStatusAllTraded || os == OrderStatusCanceled
}

// isBooked reports a status an accepted order may legally carry.
func (os OrderStatus) isBooked() bool {
	return os <= OrderStatusCanceled
}

// OrderSubmitStatus is the state of the latest insert or cancel submission of an order.
type OrderSubmitStatus uint8

const (
	SubmitStatusInsertSubmitted OrderSubmitStatus = iota
	SubmitStatusCancelSubmitted
	SubmitStatusModifySubmitted
	SubmitStatusAccepted
	SubmitStatusInsertRejected
	SubmitStatusCancelRejected
	SubmitStatusModifyRejected
)

var submitStatusTable = codeTable[OrderSubmitStatus]{
	kind:  "order submit status",
	codes: []byte{'0', '1', '2', '3', '4', '5', '6'},
	names: []string{
		"insertSubmitted",
		"cancelSubmitted",
		"modifySubmitted",
		"accepted",
		"insertRejected",
		"cancelRejected",
		"modifyRejected",
	},
}

func (ss OrderSubmitStatus) String() string                   { return submitStatusTable.name(ss) }
func (ss OrderSubmitStatus) MarshalJSON() ([]byte, error)     { return submitStatusTable.marshal(ss) }
func (ss *OrderSubmitStatus) UnmarshalJSON(data []byte) error { return submitStatusTable.unmarshal(data, ss) }
