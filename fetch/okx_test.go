package fetch

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"

	"fvgrid/shared"
)

func TestOKXParseCandlesticks(t *testing.T) {
	client := NewOKXClient(&OKXConfig{})

	// The api returns candles newest first.
	data := gjson.Parse(`[
		["120000","100.5","101.0","100.0","100.8","250"],
		["60000","100.0","100.6","99.8","100.5","300"]
	]`).Array()

	candles := client.ParseCandlesticks(data, "BTC-USDT-SWAP", shared.OneHour)
	assert.Equal(t, len(candles), 2)

	// The result is ascending by date.
	assert.Equal(t, candles[0].Date, time.UnixMilli(60000).UTC())
	assert.Equal(t, candles[1].Date, time.UnixMilli(120000).UTC())

	want := &shared.Candlestick{
		Open:      100.0,
		High:      100.6,
		Low:       99.8,
		Close:     100.5,
		Volume:    300.0,
		Date:      time.UnixMilli(60000).UTC(),
		Market:    "BTC-USDT-SWAP",
		Timeframe: shared.OneHour,
	}
	if diff := cmp.Diff(want, candles[0]); diff != "" {
		t.Errorf("unexpected candle (-want +got):\n%s", diff)
	}

	// Truncated rows are skipped.
	truncated := gjson.Parse(`[["60000","100.0","100.6"]]`).Array()
	candles = client.ParseCandlesticks(truncated, "BTC-USDT-SWAP", shared.OneHour)
	assert.Equal(t, len(candles), 0)
}

func TestOKXParseBookSide(t *testing.T) {
	side := gjson.Parse(`{"bids":[["100.5","30","0","4"],["100.4","25","0","2"]]}`).Get("bids")

	levels := parseBookSide(side)
	assert.Equal(t, len(levels), 2)
	assert.Equal(t, levels[0].Price, 100.5)
	assert.Equal(t, levels[0].Amount, 30.0)
	assert.Equal(t, levels[1].Price, 100.4)
	assert.Equal(t, levels[1].Amount, 25.0)
}

func TestOKXSign(t *testing.T) {
	client := NewOKXClient(&OKXConfig{APISecret: "secret"})

	// The signature is a deterministic function of its inputs.
	first := client.sign("2026-01-02T03:04:05.000Z", "GET", "/api/v5/account/balance", "")
	second := client.sign("2026-01-02T03:04:05.000Z", "GET", "/api/v5/account/balance", "")
	assert.Equal(t, first, second)

	// Any input change produces a different signature.
	third := client.sign("2026-01-02T03:04:06.000Z", "GET", "/api/v5/account/balance", "")
	assert.True(t, first != third)
}

func TestOKXFormURL(t *testing.T) {
	client := NewOKXClient(&OKXConfig{})

	url := client.formURL("/api/v5/market/ticker", "")
	assert.Equal(t, url, "https://www.okx.com/api/v5/market/ticker")

	url = client.formURL("/api/v5/market/candles", "instId=BTC-USDT-SWAP")
	assert.Equal(t, url, "https://www.okx.com/api/v5/market/candles?instId=BTC-USDT-SWAP")
}

func TestOKXFormURLConcurrent(t *testing.T) {
	client := NewOKXClient(&OKXConfig{})

	// One client serves the scan and position engine goroutines at once, url
	// construction must never interleave across requests.
	const want = "https://www.okx.com/api/v5/market/ticker?instId=BTC-USDT-SWAP"

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iter := 0; iter < 100; iter++ {
				url := client.formURL("/api/v5/market/ticker", "instId=BTC-USDT-SWAP")
				if url != want {
					t.Errorf("corrupted url: %s", url)
					return
				}
			}
		}()
	}
	wg.Wait()
}
