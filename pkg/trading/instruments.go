package trading

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	instrumentCacheFile = "instruments.dat"
	cacheDateLayout     = "2006-01-02"
)

var errCacheStale = errors.New("instrument cache is stale")

// Instrument is the contract metadata of one tradable code.
type Instrument struct {
	Code             string              `json:"code"`
	Name             string              `json:"name"`
	Exchange         string              `json:"exchange"`
	Multiple         int                 `json:"multiple"`
	PriceTick        decimal.Decimal     `json:"price_tick"`
	ExpireDate       string              `json:"expire_date,omitempty"`
	LongMarginRatio  decimal.NullDecimal `json:"long_margin_ratio"`
	ShortMarginRatio decimal.NullDecimal `json:"short_margin_ratio"`
	OptionType       string              `json:"option_type,omitempty"`
	StrikePrice      decimal.NullDecimal `json:"strike_price"`
	IsTrading        bool                `json:"is_trading"`
}

func instrumentOf(field *InstrumentField) Instrument {
	expire := field.ExpireDate
	if expire != "" {
		if t, err := time.Parse("20060102", expire); err == nil {
			expire = t.Format(cacheDateLayout)
		}
	}
	return Instrument{
		Code:             field.InstrumentID,
		Name:             field.InstrumentName,
		Exchange:         field.ExchangeID,
		Multiple:         field.VolumeMultiple,
		PriceTick:        decimal.NewFromFloat(field.PriceTick),
		ExpireDate:       expire,
		LongMarginRatio:  nullPrice(field.LongMarginRatio),
		ShortMarginRatio: nullPrice(field.ShortMarginRatio),
		OptionType:       field.OptionsType.String(),
		StrikePrice:      nullPrice(field.StrikePrice),
		IsTrading:        field.IsTrading != 0,
	}
}

// instrumentDirectory resolves codes to their venue. A code missing here is
// neither tradable nor quotable.
type instrumentDirectory struct {
	mx    sync.RWMutex
	items map[string]Instrument
}

func newInstrumentDirectory() *instrumentDirectory {
	return &instrumentDirectory{items: make(map[string]Instrument)}
}

func (d *instrumentDirectory) get(code string) (Instrument, error) {
	d.mx.RLock()
	defer d.mx.RUnlock()
	inst, ok := d.items[code]
	if !ok {
		return Instrument{}, &UnknownInstrumentError{Code: code}
	}
	return inst, nil
}

func (d *instrumentDirectory) exchangeOf(code string) (string, error) {
	inst, err := d.get(code)
	if err != nil {
		return "", err
	}
	return inst.Exchange, nil
}

func (d *instrumentDirectory) replace(items map[string]Instrument) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.items = items
}

func (d *instrumentDirectory) len() int {
	d.mx.RLock()
	defer d.mx.RUnlock()
	return len(d.items)
}

// loadInstrumentCache reads the cache written by saveInstrumentCache. It
// returns errCacheStale when the date stamp is not today.
func loadInstrumentCache(path string, today time.Time) (map[string]Instrument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err = scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errCacheStale
	}
	if strings.TrimSpace(scanner.Text()) != today.Format(cacheDateLayout) {
		return nil, errCacheStale
	}

	items := make(map[string]Instrument)
	line := 1
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		inst, err := parseInstrumentLine(text)
		if err != nil {
			return nil, errors.WithMessagef(err, "instrument cache line %d", line)
		}
		items[inst.Code] = inst
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// parseInstrumentLine reads "code@venue" with an optional TAB and JSON metadata.
func parseInstrumentLine(text string) (Instrument, error) {
	pair, meta, hasMeta := strings.Cut(text, "\t")
	at := strings.LastIndexByte(pair, '@')
	if at <= 0 || at == len(pair)-1 {
		return Instrument{}, errors.New("malformed entry " + strconv.Quote(pair))
	}
	var inst Instrument
	if hasMeta {
		if err := jsoniter.UnmarshalFromString(meta, &inst); err != nil {
			return Instrument{}, errors.WithMessage(err, "malformed metadata")
		}
	}
	inst.Code = pair[:at]
	inst.Exchange = pair[at+1:]
	return inst, nil
}

// saveInstrumentCache replaces the cache atomically: a temp file in the same
// directory is synced and renamed over the old one.
func saveInstrumentCache(path string, today time.Time, items map[string]Instrument) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithMessage(err, "fail create cache dir")
	}
	tmp, err := os.CreateTemp(dir, ".instruments-*.tmp")
	if err != nil {
		return errors.WithMessage(err, "fail create temp cache")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	codes := make([]string, 0, len(items))
	for code := range items {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	w := bufio.NewWriter(tmp)
	if _, err = w.WriteString(today.Format(cacheDateLayout) + "\n"); err != nil {
		return err
	}
	for _, code := range codes {
		inst := items[code]
		var meta string
		if meta, err = jsoniter.MarshalToString(inst); err != nil {
			return errors.WithMessage(err, "fail marshal instrument "+code)
		}
		if _, err = w.WriteString(code + "@" + inst.Exchange + "\t" + meta + "\n"); err != nil {
			return err
		}
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
