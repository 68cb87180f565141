package rayleigh

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// deviceIDPattern is the vendor's device id shape: a numeric id, an @, and a
// namespace such as "rayleigh".
var deviceIDPattern = regexp.MustCompile(`^[0-9]+@[A-Za-z0-9_.-]+$`)

// sensorIDDelimiters are the characters the data query grammar reserves; a
// sensor id containing one of them cannot be embedded in a request path.
const sensorIDDelimiters = ",():"

// Query is an immutable selection of devices, sensors and (at the terminal
// call) a date range. Each stage returns a new value, so intermediate states
// can be kept, branched and tested independently; nothing touches the network
// until GetData.
//
// Stages validate their input eagerly and record the first failure, which
// GetData reports before issuing any request. Err exposes the recorded
// failure on intermediate values.
type Query struct {
	client  *Client
	devices []string
	sensors []string
	err     error
}

// GetDevices starts a query against the given devices. Device ids must have
// the vendor form "<numeric-id>@<namespace>", e.g. "300000000000000@rayleigh";
// duplicates are dropped, first-seen order is kept.
func (c *Client) GetDevices(deviceIDs ...string) Query {
	q := Query{client: c}
	if len(deviceIDs) == 0 {
		q.err = &ValidationError{Reason: "no devices selected"}
		return q
	}
	for _, id := range deviceIDs {
		if !deviceIDPattern.MatchString(id) {
			q.err = &ValidationError{Reason: fmt.Sprintf("device id %q does not match <numeric-id>@<namespace>", id)}
			return q
		}
		q.devices = appendUnique(q.devices, id)
	}
	return q
}

// GetSensors records the sensor selection, replacing any previous one.
// Sensor ids are passed to the API unmodified: a prefix id such as "e1.i3p"
// is expanded into its underlying channels ("e1.i3p_1", …) by the server,
// never by this library.
func (q Query) GetSensors(sensorIDs ...string) Query {
	if q.err != nil {
		return q
	}
	q.sensors = nil
	if len(sensorIDs) == 0 {
		q.err = &ValidationError{Reason: "no sensors selected"}
		return q
	}
	for _, id := range sensorIDs {
		if id == "" {
			q.err = &ValidationError{Reason: "sensor id is empty"}
			return q
		}
		if strings.ContainsAny(id, sensorIDDelimiters) || strings.ContainsAny(id, " \t\r\n") {
			q.err = &ValidationError{Reason: fmt.Sprintf("sensor id %q contains a reserved character", id)}
			return q
		}
		q.sensors = appendUnique(q.sensors, id)
	}
	return q
}

// Err returns the validation failure recorded by an earlier stage, if any.
// GetData returns the same error, so checking Err between stages is optional.
func (q Query) Err() error { return q.err }

// GetData issues the query for readings between from and to (inclusive, equal
// values allowed) and assembles the response into a Table. It is the only
// stage that performs network activity: exactly one authenticated request,
// with no caching and no retries.
//
// The selection must have both devices and sensors set and a well-ordered,
// non-zero date range; otherwise GetData fails with a *ValidationError before
// any request is made. A selection the API has no readings for fails with a
// *NotFoundError.
func (q Query) GetData(ctx context.Context, from, to time.Time) (Table, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.devices) == 0 {
		return nil, &ValidationError{Reason: "no devices selected"}
	}
	if len(q.sensors) == 0 {
		return nil, &ValidationError{Reason: "no sensors selected"}
	}
	if from.IsZero() || to.IsZero() {
		return nil, &ValidationError{Reason: "date range is missing"}
	}
	if from.After(to) {
		return nil, &ValidationError{Reason: fmt.Sprintf("from date %s is after to date %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))}
	}

	raw, err := q.client.fetchSeries(ctx, q.devices, q.sensors, from, to)
	if err != nil {
		return nil, err
	}

	table, err := assembleTable(raw)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, &NotFoundError{apiError{Message: "no data for the requested devices, sensors and date range"}}
	}
	return table, nil
}

// appendUnique appends id unless already present, preserving first-seen order.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
