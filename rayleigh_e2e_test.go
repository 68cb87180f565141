package rayleigh_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rayleigh "github.com/jatonline/rayleigh-api"
)

// A fleet of three meters reporting energy and three current phases over the
// first days of January 2021. The client asks for "e1.kwh" and the prefix
// sensor "e1.i3p"; the server answers with the expanded phase channels, as
// the real API does.
var (
	fleetDevices = []string{
		"158100000001@rayleigh",
		"158100000002@rayleigh",
		"158100000003@rayleigh",
	}
	fleetSensors = []string{"e1.kwh", "e1.i3p_1", "e1.i3p_2", "e1.i3p_3"}
	fleetTimes   = []int64{1609459200000, 1609545600000, 1609632000000}
)

func fleetValue(device, sensor, slot int) float64 {
	return float64((device+1)*100 + (sensor+1)*10 + slot)
}

// fleetServer serves the data call for any subset of the fleet. Devices not
// in the fleet simply do not appear in the response; the extra device
// "158100000004@rayleigh" is known but has no readings in range.
func fleetServer(t *testing.T, from, to time.Time) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/fleet-account/data/"), "unexpected path %q", r.URL.Path)
		assert.Equal(t, strconv.FormatInt(from.UnixMilli(), 10), r.URL.Query().Get("from"))
		assert.Equal(t, strconv.FormatInt(to.UnixMilli(), 10), r.URL.Query().Get("to"))
		assert.Equal(t, "uob", r.URL.Query().Get("app_id"))
		assert.NotEmpty(t, r.URL.Query().Get("access_token"))

		response := map[string]map[string][][]any{}
		for d, deviceID := range fleetDevices {
			if !strings.Contains(r.URL.Path, deviceID+":(") {
				continue
			}
			series := map[string][][]any{}
			for s, sensorID := range fleetSensors {
				rows := make([][]any, 0, len(fleetTimes))
				for k, ts := range fleetTimes {
					rows = append(rows, []any{ts, fleetValue(d, s, k)})
				}
				series[sensorID] = rows
			}
			response[deviceID] = series
		}
		if strings.Contains(r.URL.Path, "158100000004@rayleigh:(") {
			response["158100000004@rayleigh"] = map[string][][]any{
				"e1.kwh": {}, "e1.i3p_1": {}, "e1.i3p_2": {}, "e1.i3p_3": {},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFleetClient(t *testing.T, srv *httptest.Server) *rayleigh.Client {
	t.Helper()
	c, err := rayleigh.NewWithConfig("fleet-account", "fleet-token", rayleigh.ClientConfig{
		Endpoint:   srv.URL,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestFleetJanuaryDownload(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 1, 31, 23, 59, 0, 0, time.UTC)
	srv := fleetServer(t, from, to)
	c := newFleetClient(t, srv)

	table, err := c.
		GetDevices(fleetDevices...).
		GetSensors("e1.kwh", "e1.i3p").
		GetData(context.Background(), from, to)
	require.NoError(t, err)

	// Every device × expanded sensor × timestamp appears exactly once.
	require.Equal(t, len(fleetDevices)*len(fleetSensors)*len(fleetTimes), table.Len())

	seen := make(map[string]struct{}, table.Len())
	for _, r := range table {
		key := fmt.Sprintf("%s|%s|%d", r.Device, r.Sensor, r.Time.UnixMilli())
		_, dup := seen[key]
		assert.False(t, dup, "duplicate reading %s", key)
		seen[key] = struct{}{}
	}

	deviceIDShape := regexp.MustCompile(`^[0-9]+@rayleigh$`)
	devices := table.Devices()
	require.Equal(t, fleetDevices, devices)
	for _, id := range devices {
		assert.Regexp(t, deviceIDShape, id)
	}

	// The prefix sensor came back expanded into its phase channels.
	for _, id := range devices {
		assert.Equal(t, []string{"e1.i3p_1", "e1.i3p_2", "e1.i3p_3", "e1.kwh"}, table.Sensors(id))
	}

	for _, r := range table {
		assert.Equal(t, time.UTC, r.Time.Location())
		assert.False(t, r.Time.Before(from) || r.Time.After(to), "reading at %s outside the requested range", r.Time)
	}

	kwh := table.Filter("158100000002@rayleigh", "e1.kwh")
	require.Equal(t, len(fleetTimes), kwh.Len())
	assert.Equal(t, []float64{
		fleetValue(1, 0, 0), fleetValue(1, 0, 1), fleetValue(1, 0, 2),
	}, kwh.Values())
	assert.Equal(t, []time.Time{
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
	}, kwh.Times())
}

func TestFleetUnknownDevice(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 1, 31, 23, 59, 0, 0, time.UTC)
	srv := fleetServer(t, from, to)
	c := newFleetClient(t, srv)

	table, err := c.
		GetDevices("158100000099@rayleigh").
		GetSensors("e1.kwh").
		GetData(context.Background(), from, to)
	require.Error(t, err)
	assert.Nil(t, table)

	var nfErr *rayleigh.NotFoundError
	require.True(t, errors.As(err, &nfErr), "want *NotFoundError, got %T", err)
}

func TestFleetDeviceWithNoReadingsInRange(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 1, 31, 23, 59, 0, 0, time.UTC)
	srv := fleetServer(t, from, to)
	c := newFleetClient(t, srv)

	table, err := c.
		GetDevices("158100000004@rayleigh").
		GetSensors("e1.kwh", "e1.i3p").
		GetData(context.Background(), from, to)
	require.Error(t, err)
	assert.Nil(t, table)

	var nfErr *rayleigh.NotFoundError
	require.True(t, errors.As(err, &nfErr), "want *NotFoundError, got %T", err)
	assert.Contains(t, err.Error(), "no data")
}

func TestFleetMixedKnownAndUnknownDevices(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 1, 31, 23, 59, 0, 0, time.UTC)
	srv := fleetServer(t, from, to)
	c := newFleetClient(t, srv)

	table, err := c.
		GetDevices("158100000001@rayleigh", "158100000099@rayleigh").
		GetSensors("e1.kwh", "e1.i3p").
		GetData(context.Background(), from, to)
	require.NoError(t, err)

	// Rows only for the device the account can see.
	assert.Equal(t, []string{"158100000001@rayleigh"}, table.Devices())
	assert.Equal(t, len(fleetSensors)*len(fleetTimes), table.Len())
}

func TestFleetEqualFromAndTo(t *testing.T) {
	at := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := fleetServer(t, at, at)
	c := newFleetClient(t, srv)

	// A single-instant range is valid; the server decides what falls in it.
	_, err := c.
		GetDevices("158100000001@rayleigh").
		GetSensors("e1.kwh", "e1.i3p").
		GetData(context.Background(), at, at)
	require.NoError(t, err)
}
