// Package rayleigh downloads measurement data from the rayleighconnect
// cloud API used by Rayleigh Instruments energy meters and sensors.
//
// A Client is built from the credentials string issued by the vendor (a
// base64-encoded document carrying the client id and access token) or from
// the two values directly:
//
//	clientID, accessToken, err := rayleigh.DecodeCredentials(encoded)
//	if err != nil {
//		// handle *rayleigh.DecodingError
//	}
//	client, err := rayleigh.New(clientID, accessToken)
//
// Data is fetched through a query that narrows down devices, sensors and a
// date range, then issues a single API request:
//
//	table, err := client.
//		GetDevices("158100000000@rayleigh").
//		GetSensors("e1.kwh", "e1.i3p_1").
//		GetData(ctx, from, to)
//
// The result is a flat Table of Reading rows (device, sensor, timestamp,
// value) ordered by device, sensor and time. Timestamps are UTC.
//
// Every failure is reported as one of the typed errors in this package
// (DecodingError, ConfigurationError, ValidationError, AuthenticationError,
// NotFoundError, RateLimitError, TransportError, ServerError, ParsingError),
// so callers can branch with errors.As.
//
// This library is not associated with Rayleigh Instruments or UXEON.
// rayleighconnect is a trademark of Rayleigh Instruments.
package rayleigh
