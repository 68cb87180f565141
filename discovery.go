package rayleigh

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

// Device is one metering endpoint visible to the account. Params carries the
// vendor's parameter object as returned; only "id" is interpreted.
type Device struct {
	ID     string
	Params map[string]any
}

// Sensor is one measurement channel on a device. The sensor id ("e1",
// "e1.kwh", "158", ...) only identifies a channel together with its device
// id. Params carries the vendor's parameter object as returned.
type Sensor struct {
	ID     string
	Device string
	Params map[string]any
}

// devicesCacheKey indexes the account-wide device listing in the discovery
// cache; it cannot collide with device-id keys, which always contain an @.
const devicesCacheKey = "devices"

// ListDevices returns all devices available on this account. The listing is
// memoized per client instance (bounded LRU), so repeated calls cost one
// request; data queries are unaffected by this cache.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	if cached, ok := c.cacheGet(devicesCacheKey); ok {
		return cached.([]Device), nil
	}

	var raw []map[string]any
	if err := c.Request(ctx, http.MethodGet, "devices", nil, nil, &raw); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(raw))
	for _, params := range raw {
		id, ok := params["id"].(string)
		if !ok || id == "" {
			return nil, &ParsingError{Reason: "device entry has no id"}
		}
		devices = append(devices, Device{ID: id, Params: params})
	}

	c.cacheAdd(devicesCacheKey, devices)
	return devices, nil
}

// GetDevice returns a specific device from the account listing, failing with
// a *NotFoundError when the account cannot see it.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (Device, error) {
	if !deviceIDPattern.MatchString(deviceID) {
		return Device{}, &ValidationError{Reason: fmt.Sprintf("device id %q does not match <numeric-id>@<namespace>", deviceID)}
	}

	devices, err := c.ListDevices(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, device := range devices {
		if device.ID == deviceID {
			return device, nil
		}
	}
	return Device{}, &NotFoundError{apiError{Message: fmt.Sprintf("device %s is not visible to this account", deviceID)}}
}

// ListSensors returns the sensors available on a device, sorted by sensor id.
// Like ListDevices, the listing is memoized per client instance.
func (c *Client) ListSensors(ctx context.Context, deviceID string) ([]Sensor, error) {
	if !deviceIDPattern.MatchString(deviceID) {
		return nil, &ValidationError{Reason: fmt.Sprintf("device id %q does not match <numeric-id>@<namespace>", deviceID)}
	}

	if cached, ok := c.cacheGet(deviceID); ok {
		return cached.([]Sensor), nil
	}

	// The response is keyed by the device id, with sensor parameter objects
	// under their sensor ids.
	var raw map[string]map[string]map[string]any
	if err := c.Request(ctx, http.MethodGet, "devices/"+deviceID, nil, nil, &raw); err != nil {
		return nil, err
	}

	listing, ok := raw[deviceID]
	if !ok {
		return nil, &NotFoundError{apiError{Message: fmt.Sprintf("device %s returned no sensor listing", deviceID)}}
	}

	sensors := make([]Sensor, 0, len(listing))
	for id, params := range listing {
		sensors = append(sensors, Sensor{ID: id, Device: deviceID, Params: params})
	}
	sort.Slice(sensors, func(i, j int) bool { return sensors[i].ID < sensors[j].ID })

	c.cacheAdd(deviceID, sensors)
	return sensors, nil
}

// GetSensor returns a specific sensor of a device, failing with a
// *NotFoundError when the device does not report it.
func (c *Client) GetSensor(ctx context.Context, deviceID, sensorID string) (Sensor, error) {
	sensors, err := c.ListSensors(ctx, deviceID)
	if err != nil {
		return Sensor{}, err
	}
	for _, sensor := range sensors {
		if sensor.ID == sensorID {
			return sensor, nil
		}
	}
	return Sensor{}, &NotFoundError{apiError{Message: fmt.Sprintf("sensor %s not found on device %s", sensorID, deviceID)}}
}

func (c *Client) cacheGet(key string) (any, bool) {
	if c.discovery == nil {
		return nil, false
	}
	return c.discovery.Get(key)
}

func (c *Client) cacheAdd(key string, value any) {
	if c.discovery != nil {
		c.discovery.Add(key, value)
	}
}
