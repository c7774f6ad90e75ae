package trading

import (
	"strconv"
	"time"
)

// callbackKind names the response callback that completes an operation.
type callbackKind uint8

const (
	kindHandshake callbackKind = iota
	kindSubscribe
	kindUnsubscribe
	kindQryInstrument
	kindQryAccount
	kindQryOrder
	kindQryPosition
	kindQryContractBank
	kindQryAccountRegister
	kindOrderInsert
	kindOrderAction
	kindTransferFromBank
	kindTransferToBank
)

var callbackKindNames = []string{
	"handshake",
	"OnRspSubMarketData",
	"OnRspUnSubMarketData",
	"OnRspQryInstrument",
	"OnRspQryTradingAccount",
	"OnRspQryOrder",
	"OnRspQryInvestorPosition",
	"OnRspQryContractBank",
	"OnRspQryAccountregister",
	"OnRspOrderInsert",
	"OnRspOrderAction",
	"OnRspFromBankToFutureByFuture",
	"OnRspFromFutureToBankByFuture",
}

func (k callbackKind) String() string {
	if int(k) < len(callbackKindNames) {
		return callbackKindNames[k]
	}
	return "callback(" + strconv.Itoa(int(k)) + ")"
}

// noRequestID marks operations whose responses carry no usable request id.
const noRequestID = -1

// operation describes a blocking call before it starts.
type operation struct {
	name string
	kind callbackKind
	// query operations are rate limited
	query bool
	// idless operations are matched on the callback kind only
	idless bool
	// progress turns the wait into a paginated one
	progress func() int
	action   *orderAction
	// codes an idless subscription waits answers for
	codes []string
}

// pendingOperation is the single outstanding call of a session.
type pendingOperation struct {
	name      string
	kind      callbackKind
	requestID int
	gen       uint64
	start     time.Time
	action    *orderAction
	// outstanding holds the codes not answered yet
	outstanding map[string]struct{}
	// settled is set once the outcome was handed to the gate
	settled bool
}
