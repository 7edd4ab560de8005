package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"TradeWarden/internal/model"
)

func TestHTTPGatewayLastPrice(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/quote/ltp" {
			t.Errorf("path = %q, want /quote/ltp", r.URL.Path)
		}
		w.Write([]byte(`{"data": {"NSE:INFY": {"last_price": 1501.25}}}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "tok")
	price, err := gw.LastPrice(context.Background(), "NSE", "INFY")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if price != 1501.25 {
		t.Errorf("price = %v, want 1501.25", price)
	}
	if gotAuth != "token key:tok" {
		t.Errorf("Authorization = %q, want token key:tok", gotAuth)
	}
}

func TestHTTPGatewayLastPriceSessionEnded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"NSE:INFY": {"last_price": "ENDED"}}}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "tok")
	_, err := gw.LastPrice(context.Background(), "NSE", "INFY")
	if !errors.Is(err, ErrSessionEnded) {
		t.Errorf("err = %v, want ErrSessionEnded", err)
	}
}

func TestHTTPGatewayLastPriceUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "stale")
	_, err := gw.LastPrice(context.Background(), "NSE", "INFY")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestHTTPGatewayPlaceMarketOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/regular" {
			t.Errorf("path = %q, want /orders/regular", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("transaction_type"); got != "BUY" {
			t.Errorf("transaction_type = %q, want BUY", got)
		}
		if got := r.PostForm.Get("product"); got != "CNC" {
			t.Errorf("product = %q, want CNC for delivery", got)
		}
		if got := r.PostForm.Get("quantity"); got != "10" {
			t.Errorf("quantity = %q, want 10", got)
		}
		w.Write([]byte(`{"status": "success"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "tok")
	order, err := gw.PlaceMarketOrder(context.Background(), Order{
		Symbol:      "INFY",
		Exchange:    "NSE",
		Side:        model.SideBuy,
		Quantity:    10,
		ProductType: model.ProductDelivery,
	})
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}
	if order.ClientID == "" {
		t.Error("accepted order missing client ID")
	}
}

func TestHTTPGatewayOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "error", "message": "insufficient funds"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "tok")
	_, err := gw.PlaceMarketOrder(context.Background(), Order{Symbol: "INFY", Side: model.SideBuy})
	if !errors.Is(err, ErrOrderRejected) {
		t.Errorf("err = %v, want ErrOrderRejected", err)
	}
}

func TestHTTPGatewaySetAccessToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "key", "old")
	gw.SetAccessToken("fresh")
	if !gw.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated = false on a 200 response")
	}
	if gotAuth != "token key:fresh" {
		t.Errorf("Authorization = %q, want the replaced token", gotAuth)
	}
}
