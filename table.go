package rayleigh

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Reading is one observation: a value reported by one sensor on one device at
// one point in time. Timestamps are carried in UTC.
type Reading struct {
	Device string
	Sensor string
	Time   time.Time
	Value  float64
}

// Table is the canonical result shape: a flat row-per-reading table, sorted
// by device, then sensor, then time. Every leaf observation of the response
// appears exactly once. The accessors below project views of the table; none
// of them introduce a second shape.
type Table []Reading

// Len returns the number of readings.
func (t Table) Len() int { return len(t) }

// Devices returns the distinct device ids present, in table order.
func (t Table) Devices() []string {
	var ids []string
	for _, r := range t {
		ids = appendUnique(ids, r.Device)
	}
	return ids
}

// Sensors returns the distinct sensor ids present for a device, in table
// order. Server-side expansion means these can differ from the ids that were
// queried, e.g. "e1.i3p" coming back as "e1.i3p_1".."e1.i3p_3".
func (t Table) Sensors(device string) []string {
	var ids []string
	for _, r := range t {
		if r.Device == device {
			ids = appendUnique(ids, r.Sensor)
		}
	}
	return ids
}

// Filter returns the readings for one (device, sensor) pair, in time order.
func (t Table) Filter(device, sensor string) Table {
	var rows Table
	for _, r := range t {
		if r.Device == device && r.Sensor == sensor {
			rows = append(rows, r)
		}
	}
	return rows
}

// Values returns the value column in table order.
func (t Table) Values() []float64 {
	values := make([]float64, len(t))
	for i, r := range t {
		values[i] = r.Value
	}
	return values
}

// Times returns the datetime column in table order.
func (t Table) Times() []time.Time {
	times := make([]time.Time, len(t))
	for i, r := range t {
		times[i] = r.Time
	}
	return times
}

// rawSeries is the wire layout of a data response: device id → sensor id →
// an array of [timestamp, value] rows, with timestamps in epoch milliseconds.
// Row arrays are kept raw so a malformed row can be reported against the
// device and sensor it belongs to.
type rawSeries map[string]map[string]json.RawMessage

// assembleTable flattens a raw data response into a sorted Table. Sensors
// with an empty row list are skipped, exactly as the API returns them for
// series with no readings in range. A row that is not a [timestamp, value]
// pair of numbers fails with a *ParsingError naming the series.
func assembleTable(raw rawSeries) (Table, error) {
	var table Table
	for deviceID, sensors := range raw {
		for sensorID, rows := range sensors {
			readings, err := decodeRows(deviceID, sensorID, rows)
			if err != nil {
				return nil, err
			}
			table = append(table, readings...)
		}
	}

	sort.Slice(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Device != b.Device {
			return a.Device < b.Device
		}
		if a.Sensor != b.Sensor {
			return a.Sensor < b.Sensor
		}
		return a.Time.Before(b.Time)
	})
	return table, nil
}

func decodeRows(deviceID, sensorID string, raw json.RawMessage) ([]Reading, error) {
	var rows [][]json.Number
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &ParsingError{
			Device: deviceID,
			Sensor: sensorID,
			Reason: "series is not an array of [timestamp, value] rows",
			Err:    err,
		}
	}

	readings := make([]Reading, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, &ParsingError{
				Device: deviceID,
				Sensor: sensorID,
				Reason: fmt.Sprintf("row has %d fields, want timestamp and value", len(row)),
			}
		}
		millis, err := row[0].Int64()
		if err != nil {
			return nil, &ParsingError{
				Device: deviceID,
				Sensor: sensorID,
				Reason: fmt.Sprintf("timestamp %q is not an epoch-millisecond integer", row[0].String()),
				Err:    err,
			}
		}
		value, err := row[1].Float64()
		if err != nil {
			return nil, &ParsingError{
				Device: deviceID,
				Sensor: sensorID,
				Reason: fmt.Sprintf("value %q is not numeric", row[1].String()),
				Err:    err,
			}
		}
		readings = append(readings, Reading{
			Device: deviceID,
			Sensor: sensorID,
			Time:   time.UnixMilli(millis).UTC(),
			Value:  value,
		})
	}
	return readings, nil
}
