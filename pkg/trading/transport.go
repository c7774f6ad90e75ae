package trading

// MarketDataSpi receives market data session callbacks. A transport invokes
// them one at a time, in delivery order.
type MarketDataSpi interface {
	OnFrontConnected()
	OnFrontDisconnected(reason int)
	OnRspUserLogin(rsp *RspUserLoginField, info *RspInfoField, requestID int, isLast bool)
	OnRspSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool)
	OnRspUnSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool)
	OnRtnDepthMarketData(data *DepthMarketDataField)
}

// MarketDataAPI carries market data session requests.
// Request methods return 0 when the request was queued, or a negative ReturnCode.
type MarketDataAPI interface {
	// Connect registers spi and starts connecting; OnFrontConnected follows.
	Connect(spi MarketDataSpi) error
	ReqUserLogin(req *ReqUserLoginField, requestID int) int
	SubscribeMarketData(codes []string) int
	UnSubscribeMarketData(codes []string) int
	Close() error
}

// TraderSpi receives trading session callbacks. A transport invokes them one
// at a time, in delivery order.
type TraderSpi interface {
	OnFrontConnected()
	OnFrontDisconnected(reason int)
	OnRspAuthenticate(info *RspInfoField, requestID int, isLast bool)
	OnRspUserLogin(rsp *RspUserLoginField, info *RspInfoField, requestID int, isLast bool)
	OnRspSettlementInfoConfirm(info *RspInfoField, requestID int, isLast bool)
	OnRspQryInstrument(rsp *InstrumentField, info *RspInfoField, requestID int, isLast bool)
	OnRspQryTradingAccount(rsp *TradingAccountField, info *RspInfoField, requestID int, isLast bool)
	OnRspQryOrder(rsp *OrderField, info *RspInfoField, requestID int, isLast bool)
	OnRspQryInvestorPosition(rsp *InvestorPositionField, info *RspInfoField, requestID int, isLast bool)
	OnRspQryContractBank(rsp *ContractBankField, info *RspInfoField, requestID int, isLast bool)
	OnRspQryAccountregister(rsp *AccountregisterField, info *RspInfoField, requestID int, isLast bool)
	OnRspOrderInsert(info *RspInfoField, requestID int, isLast bool)
	OnErrRtnOrderInsert(info *RspInfoField)
	OnRtnOrder(order *OrderField)
	OnRspOrderAction(info *RspInfoField, requestID int, isLast bool)
	OnErrRtnOrderAction(info *RspInfoField)
	OnRspFromBankToFutureByFuture(info *RspInfoField, requestID int, isLast bool)
	OnRtnFromBankToFutureByFuture(rsp *RspTransferField)
	OnRspFromFutureToBankByFuture(info *RspInfoField, requestID int, isLast bool)
	OnRtnFromFutureToBankByFuture(rsp *RspTransferField)
}

// TraderAPI carries trading session requests.
// Request methods return 0 when the request was queued, or a negative ReturnCode.
type TraderAPI interface {
	// Connect registers spi and starts connecting; OnFrontConnected follows.
	Connect(spi TraderSpi) error
	ReqAuthenticate(req *ReqAuthenticateField, requestID int) int
	ReqUserLogin(req *ReqUserLoginField, requestID int) int
	ReqSettlementInfoConfirm(req *SettlementInfoConfirmField, requestID int) int
	ReqQryInstrument(req *QryInstrumentField, requestID int) int
	ReqQryTradingAccount(req *QryTradingAccountField, requestID int) int
	ReqQryOrder(req *QryOrderField, requestID int) int
	ReqQryInvestorPosition(req *QryInvestorPositionField, requestID int) int
	ReqQryContractBank(req *QryContractBankField, requestID int) int
	ReqQryAccountregister(req *QryAccountregisterField, requestID int) int
	ReqOrderInsert(req *InputOrderField, requestID int) int
	ReqOrderAction(req *InputOrderActionField, requestID int) int
	ReqFromBankToFutureByFuture(req *ReqTransferField, requestID int) int
	ReqFromFutureToBankByFuture(req *ReqTransferField, requestID int) int
	Close() error
}
