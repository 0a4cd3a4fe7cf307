package screener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"daily-losers-bot/internal/types"
)

const losersPage = `<html><body><table><thead><tr><th>Symbol</th></tr></thead><tbody>
<tr><td><a href="/quote/AAA/?p=AAA">AAA</a></td><td>-12.1%</td></tr>
<tr><td><a href="/quote/BRK-B/">BRK-B</a></td><td>-9.0%</td></tr>
<tr><td aria-label="Symbol">ccc</td><td>-8.0%</td></tr>
<tr><td><a href="/quote/AAA/">AAA</a></td><td>-7.5%</td></tr>
<tr><td><a href="/quote/DDD/">DDD</a></td><td>-7.0%</td></tr>
</tbody></table></body></html>`

func TestYahooLosers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected browser user agent")
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(losersPage))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL+"/losers", time.Second, nil)

	got, err := y.Losers(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"AAA", "BRK-B", "CCC", "DDD"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	top2, err := y.Losers(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(top2, want[:2]) {
		t.Errorf("expected top 2 %v, got %v", want[:2], top2)
	}
}

func TestYahooLosersUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewYahoo(srv.URL, time.Second, nil).Losers(context.Background(), 10); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing</body></html>"))
	}))
	defer empty.Close()
	if _, err := NewYahoo(empty.URL, time.Second, nil).Losers(context.Background(), 10); !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty table, got %v", err)
	}

	if _, err := NewYahoo(empty.URL, time.Second, nil).Losers(context.Background(), 0); !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSymbolFromQuoteHref(t *testing.T) {
	tests := map[string]string{
		"/quote/AAA/?p=AAA":                      "AAA",
		"https://finance.yahoo.com/quote/brk-b/": "BRK-B",
		"/quote/X":                               "X",
		"/news/something":                        "",
	}
	for in, want := range tests {
		if got := symbolFromQuoteHref(in); got != want {
			t.Errorf("symbolFromQuoteHref(%q) = %q, want %q", in, got, want)
		}
	}
}

type assetBroker struct {
	assets map[string]types.Asset
	errs   map[string]error
}

func (b *assetBroker) Account(ctx context.Context) (types.Account, error) {
	return types.Account{}, nil
}
func (b *assetBroker) Positions(ctx context.Context) ([]types.Position, error) {
	return nil, nil
}
func (b *assetBroker) Asset(ctx context.Context, symbol string) (types.Asset, error) {
	if err, ok := b.errs[symbol]; ok {
		return types.Asset{}, err
	}
	a, ok := b.assets[symbol]
	if !ok {
		return types.Asset{}, types.NewSymbolError(symbol, "asset", types.ErrNotFound)
	}
	return a, nil
}
func (b *assetBroker) Clock(ctx context.Context) (types.Clock, error) { return types.Clock{}, nil }
func (b *assetBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return types.OrderResp{}, nil
}

type staticScreener []string

func (s staticScreener) Losers(ctx context.Context, top int) ([]string, error) { return s, nil }

func TestSaveAndLoadLosers(t *testing.T) {
	ok := types.Asset{Tradable: true, Fractionable: true, Status: "active", Exchange: "NYSE"}
	broker := &assetBroker{assets: map[string]types.Asset{
		"AAA":   ok,
		"OTCX":  {Tradable: true, Fractionable: true, Status: "active", Exchange: "OTC"},
		"WHOLE": {Tradable: true, Fractionable: false, Status: "active", Exchange: "NASDAQ"},
		"CCC":   ok,
	}}
	path := filepath.Join(t.TempDir(), "data", "losers.csv")

	saved, err := SaveLosers(context.Background(), staticScreener{"AAA", "OTCX", "GONE", "WHOLE", "CCC"}, broker, path, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"AAA", "CCC"}
	if !reflect.DeepEqual(saved, want) {
		t.Errorf("expected %v, got %v", want, saved)
	}

	loaded, err := LoadLosers(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(loaded, want) {
		t.Errorf("expected %v after reload, got %v", want, loaded)
	}

	fromFile, err := FileScreener{Path: path}.Losers(context.Background(), 1)
	if err != nil || !reflect.DeepEqual(fromFile, []string{"AAA"}) {
		t.Errorf("expected [AAA] from file screener, got %v (%v)", fromFile, err)
	}
}

func TestLoadLosersMissingFile(t *testing.T) {
	_, err := LoadLosers(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestFilterTradeableSkipsFailedLookups(t *testing.T) {
	ok := types.Asset{Tradable: true, Fractionable: true, Status: "active", Exchange: "NYSE"}
	broker := &assetBroker{
		assets: map[string]types.Asset{"AAA": ok, "BBB": ok},
		errs:   map[string]error{"FLAKY": errors.New("503 service unavailable")},
	}

	got, err := FilterTradeable(context.Background(), broker, []string{"AAA", "FLAKY", "BBB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"AAA", "BBB"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FilterTradeable(ctx, broker, []string{"AAA"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
