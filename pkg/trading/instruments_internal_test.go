package trading

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gotest.tools/assert"
)

func TestInstrumentCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", instrumentCacheFile)
	today := time.Date(2025, 10, 15, 8, 30, 0, 0, time.Local)
	items := map[string]Instrument{
		"rb2510": instrumentOf(&InstrumentField{InstrumentID: "rb2510", ExchangeID: "SHFE", VolumeMultiple: 10, PriceTick: 1, ExpireDate: "20251015", IsTrading: 1, LongMarginRatio: 0.09, ShortMarginRatio: 0.09, StrikePrice: 1.7976931348623157e+308}),
		"au2512": instrumentOf(&InstrumentField{InstrumentID: "au2512", ExchangeID: "SHFE", VolumeMultiple: 1000, PriceTick: 0.02}),
	}

	t.Run("round trip", func(t *testing.T) {
		assert.NilError(t, saveInstrumentCache(path, today, items))
		loaded, err := loadInstrumentCache(path, today.Add(10*time.Hour))
		assert.NilError(t, err)
		assert.Equal(t, len(loaded), 2)
		rb := loaded["rb2510"]
		assert.Equal(t, rb.Exchange, "SHFE")
		assert.Equal(t, rb.Multiple, 10)
		assert.Equal(t, rb.ExpireDate, "2025-10-15")
		assert.Check(t, rb.IsTrading)
		assert.Check(t, !rb.StrikePrice.Valid)
		assert.Check(t, loaded["au2512"].PriceTick.Equal(decimal.RequireFromString("0.02")))
	})

	t.Run("stale date", func(t *testing.T) {
		_, err := loadInstrumentCache(path, today.AddDate(0, 0, 1))
		assert.Equal(t, err, errCacheStale)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadInstrumentCache(filepath.Join(t.TempDir(), "none.dat"), today)
		assert.Check(t, os.IsNotExist(err))
	})

	t.Run("bare entries", func(t *testing.T) {
		bare := filepath.Join(t.TempDir(), instrumentCacheFile)
		assert.NilError(t, os.WriteFile(bare, []byte("2025-10-15\nrb2510@SHFE\n\nIO2512-C-4000@CFFEX\n"), 0o644))
		loaded, err := loadInstrumentCache(bare, today)
		assert.NilError(t, err)
		assert.Equal(t, loaded["IO2512-C-4000"].Exchange, "CFFEX")
		assert.Equal(t, loaded["rb2510"].Code, "rb2510")
	})

	t.Run("malformed", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), instrumentCacheFile)
		assert.NilError(t, os.WriteFile(bad, []byte("2025-10-15\nrb2510@SHFE\nbroken\n"), 0o644))
		_, err := loadInstrumentCache(bad, today)
		assert.ErrorContains(t, err, "instrument cache line 3")
	})
}

func TestInstrumentDirectory(t *testing.T) {
	d := newInstrumentDirectory()
	_, err := d.exchangeOf("rb2510")
	assert.Error(t, err, "instrument <rb2510> does not exist")

	d.replace(map[string]Instrument{"rb2510": {Code: "rb2510", Exchange: "SHFE"}})
	exchange, err := d.exchangeOf("rb2510")
	assert.NilError(t, err)
	assert.Equal(t, exchange, "SHFE")
	assert.Equal(t, d.len(), 1)
}

func TestQuoteOf(t *testing.T) {
	q := quoteOf(&DepthMarketDataField{
		InstrumentID:    "rb2510",
		LastPrice:       3151,
		ClosePrice:      1.7976931348623157e+308,
		AskPrice1:       3152,
		AskVolume1:      4,
		BidPrice2:       1.7976931348623157e+308,
		OpenInterest:    1200345,
		UpperLimitPrice: 3454,
	})
	assert.Equal(t, q.Code, "rb2510")
	assert.Equal(t, q.Price.Decimal.String(), "3151")
	assert.Check(t, !q.Close.Valid)
	assert.Equal(t, q.Asks[0].Volume, 4)
	assert.Check(t, q.Asks[0].Price.Valid)
	assert.Check(t, !q.Bids[1].Price.Valid)
	assert.Equal(t, q.OpenInterest, int64(1200345))
}
