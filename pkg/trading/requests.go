package trading

import "github.com/shopspring/decimal"

// Native constants of fields the client never varies.
const (
	hedgeFlagSpeculation   = "1"
	contingentImmediately  = "1"
	forceCloseReasonNone   = "0"
	actionFlagDelete       = "0"
	bizTypeFuture          = "1"
	currencyCNY            = "CNY"
	verifyCertNoFlagAbsent = "1"
)

// credentials identify the investor on every trading request.
type credentials struct {
	BrokerID string
	AppID    string
	AuthCode string
	UserID   string
	Password string
}

func (c credentials) authenticateField() *ReqAuthenticateField {
	return &ReqAuthenticateField{BrokerID: c.BrokerID, UserID: c.UserID, AppID: c.AppID, AuthCode: c.AuthCode}
}

func (c credentials) userLoginField() *ReqUserLoginField {
	return &ReqUserLoginField{BrokerID: c.BrokerID, UserID: c.UserID, Password: c.Password}
}

func (c credentials) settlementConfirmField() *SettlementInfoConfirmField {
	return &SettlementInfoConfirmField{BrokerID: c.BrokerID, InvestorID: c.UserID}
}

func (c credentials) tradingAccountQuery() *QryTradingAccountField {
	return &QryTradingAccountField{BrokerID: c.BrokerID, InvestorID: c.UserID, CurrencyID: currencyCNY, BizType: bizTypeFuture}
}

func (c credentials) orderQuery() *QryOrderField {
	return &QryOrderField{BrokerID: c.BrokerID, InvestorID: c.UserID}
}

func (c credentials) positionQuery() *QryInvestorPositionField {
	return &QryInvestorPositionField{BrokerID: c.BrokerID, InvestorID: c.UserID}
}

func (c credentials) contractBankQuery() *QryContractBankField {
	return &QryContractBankField{BrokerID: c.BrokerID}
}

func (c credentials) accountRegisterQuery() *QryAccountregisterField {
	return &QryAccountregisterField{BrokerID: c.BrokerID, AccountID: c.UserID}
}

func (c credentials) inputOrderField(ins orderInsert, ref int) *InputOrderField {
	return &InputOrderField{
		BrokerID:            c.BrokerID,
		InvestorID:          c.UserID,
		ExchangeID:          ins.exchange,
		InstrumentID:        ins.code,
		OrderRef:            formatOrderRef(ref),
		Direction:           ins.side,
		CombOffsetFlag:      ins.offset,
		CombHedgeFlag:       hedgeFlagSpeculation,
		OrderPriceType:      ins.priceType,
		TimeCondition:       ins.timeCondition,
		VolumeCondition:     ins.volumeCondition,
		LimitPrice:          ins.price.InexactFloat64(),
		VolumeTotalOriginal: ins.volume,
		MinVolume:           ins.minVolume,
		ContingentCondition: contingentImmediately,
		ForceCloseReason:    forceCloseReasonNone,
	}
}

func (c credentials) orderActionField(id OrderID, exchange string) *InputOrderActionField {
	return &InputOrderActionField{
		BrokerID:     c.BrokerID,
		InvestorID:   c.UserID,
		UserID:       c.UserID,
		ExchangeID:   exchange,
		InstrumentID: id.Code,
		OrderSysID:   id.SysID,
		ActionFlag:   actionFlagDelete,
	}
}

func (c credentials) transferField(reg TransferRegister, password string, amount decimal.Decimal) *ReqTransferField {
	return &ReqTransferField{
		BrokerID:         c.BrokerID,
		BrokerBranchID:   reg.BrokerBranchID,
		BankID:           reg.BankID,
		BankBranchID:     reg.BankBranchID,
		BankAccount:      reg.BankAccount,
		AccountID:        c.UserID,
		Password:         password,
		CurrencyID:       reg.Currency,
		TradeAmount:      amount.InexactFloat64(),
		VerifyCertNoFlag: verifyCertNoFlagAbsent,
	}
}
