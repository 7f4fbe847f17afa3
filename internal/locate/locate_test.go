package locate

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIPProviders(t *testing.T) {
	tests := []struct {
		name      string
		newFn     func(string, *http.Client) Provider
		body      string
		wantLat   float64
		wantLon   float64
		wantLabel string
	}{
		{
			name:      "ipapi.co",
			newFn:     NewIPAPI,
			body:      `{"latitude": 52.52, "longitude": 13.405, "city": "Berlin", "region": "Land Berlin", "country_name": "Germany"}`,
			wantLat:   52.52,
			wantLon:   13.405,
			wantLabel: "Berlin, Land Berlin, Germany",
		},
		{
			name:      "ip-api.com",
			newFn:     NewIPAPICom,
			body:      `{"status": "success", "lat": 48.8566, "lon": 2.3522, "city": "Paris", "regionName": "Île-de-France", "country": "France"}`,
			wantLat:   48.8566,
			wantLon:   2.3522,
			wantLabel: "Paris, Île-de-France, France",
		},
		{
			name:      "ipinfo.io",
			newFn:     NewIPInfo,
			body:      `{"loc": "35.6895,139.6917", "city": "Tokyo", "country": "JP"}`,
			wantLat:   35.6895,
			wantLon:   139.6917,
			wantLabel: "Tokyo, Unknown, JP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, http.StatusOK, tt.body)
			p := tt.newFn(srv.URL, srv.Client())
			assert.Equal(t, tt.name, p.Name())

			loc, err := p.Locate(context.Background())
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, loc.Lat, 1e-9)
			assert.InDelta(t, tt.wantLon, loc.Lon, 1e-9)
			assert.Equal(t, tt.wantLabel, loc.Label)
		})
	}
}

func TestIPProviders_Failures(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func(string, *http.Client) Provider
		status  int
		body    string
		wantErr string
	}{
		{"ipapi rate limited", NewIPAPI, http.StatusTooManyRequests, `{}`, "unexpected status"},
		{"ipapi error body", NewIPAPI, http.StatusOK, `{"error": true, "reason": "RateLimited"}`, "RateLimited"},
		{"ipapi no coordinates", NewIPAPI, http.StatusOK, `{"city": "Nowhere"}`, "no coordinates"},
		{"ip-api fail status", NewIPAPICom, http.StatusOK, `{"status": "fail", "message": "private range"}`, "private range"},
		{"ipinfo bad loc", NewIPInfo, http.StatusOK, `{"loc": ""}`, "malformed loc"},
		{"not json", NewIPInfo, http.StatusOK, `<html>`, "invalid response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body)
			_, err := tt.newFn(srv.URL, srv.Client()).Locate(context.Background())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

type stubProvider struct {
	name  string
	loc   *Location
	err   error
	delay time.Duration
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Locate(ctx context.Context) (*Location, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.loc, s.err
}

func TestLocator_FallsBack(t *testing.T) {
	failing := &stubProvider{name: "first", err: errors.New("boom")}
	zero := &stubProvider{name: "second", loc: &Location{}}
	slow := &stubProvider{name: "third", loc: &Location{Lat: 1, Lon: 1}, delay: time.Second}
	good := &stubProvider{name: "fourth", loc: &Location{Lat: 51.5, Lon: -0.12, Label: "London"}}
	never := &stubProvider{name: "fifth"}

	l := NewWithProviders(20*time.Millisecond, failing, zero, slow, good, never)
	loc, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "London", loc.Label)
	assert.Equal(t, "fourth", loc.Source)
	assert.Zero(t, never.calls)
}

func TestLocator_Unavailable(t *testing.T) {
	l := NewWithProviders(time.Second, &stubProvider{name: "only", err: errors.New("offline")})
	_, err := l.Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "only: offline")

	_, err = NewWithProviders(time.Second).Locate(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOnline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	orig := ProbeAddr
	t.Cleanup(func() { ProbeAddr = orig })

	ProbeAddr = ln.Addr().String()
	assert.True(t, Online(context.Background()))

	ln.Close()
	assert.False(t, Online(context.Background()))
}

type stubBusObject struct {
	dbus.BusObject
	method   string
	deadline time.Time
	err      error
}

func (o *stubBusObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.method = method
	o.deadline, _ = ctx.Deadline()
	o.err = ctx.Err()
	return &dbus.Call{Err: errors.New("no such client")}
}

func TestStopClient(t *testing.T) {
	obj := &stubBusObject{}
	start := time.Now()
	stopClient(obj, 50*time.Millisecond)

	assert.Equal(t, "org.freedesktop.GeoClue2.Client.Stop", obj.method)
	require.False(t, obj.deadline.IsZero())
	assert.WithinDuration(t, start.Add(50*time.Millisecond), obj.deadline, 40*time.Millisecond)
	assert.NoError(t, obj.err)
}
