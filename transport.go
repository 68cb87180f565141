package rayleigh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const headerRequestID = "X-Request-Id"

// Request issues one authenticated API call and decodes the JSON response
// into out when out is non-nil. It is the escape hatch under every method of
// this client: path is the API call without surrounding slashes (e.g.
// "devices"), params are additional query parameters, and body is marshalled
// as JSON for non-GET methods.
//
// The app id and access token are added as query parameters and the client
// id as the leading path segment, as the API requires on every call.
func (c *Client) Request(ctx context.Context, method, path string, params url.Values, body, out any) error {
	resp, err := c.do(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ParsingError{Reason: "response body is not valid JSON", Err: err}
	}
	return nil
}

// fetchSeries performs the terminal data call for a selection: one GET for
// all requested devices and sensors, grouped per device as the data query
// grammar requires, with the date range in epoch milliseconds.
func (c *Client) fetchSeries(ctx context.Context, devices, sensors []string, from, to time.Time) (rawSeries, error) {
	sensorList := strings.Join(sensors, ",")
	groups := make([]string, len(devices))
	for i, deviceID := range devices {
		groups[i] = deviceID + ":(" + sensorList + ")"
	}

	params := url.Values{}
	params.Set("from", strconv.FormatInt(from.UnixMilli(), 10))
	params.Set("to", strconv.FormatInt(to.UnixMilli(), 10))

	var raw rawSeries
	if err := c.Request(ctx, http.MethodGet, "data/"+strings.Join(groups, ","), params, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// do sends the request and maps the outcome onto the client's error types:
// transport failures to *TransportError, non-2xx statuses per status code.
// The response is returned only for 2xx statuses.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (*resty.Response, error) {
	requestID := uuid.NewString()

	query := url.Values{}
	for key, values := range params {
		query[key] = values
	}
	query.Set("app_id", c.appID)
	query.Set("access_token", c.accessToken)

	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, requestID).
		SetQueryParamsFromValues(query)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	// Ids are embedded verbatim: the data query grammar uses characters
	// (@ : , parens) that are valid in URL paths and must not be escaped.
	operation := operationFromPath(path)
	start := time.Now()
	resp, err := req.Execute(method, "/"+c.clientID+"/"+strings.TrimPrefix(path, "/"))
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.observe(operation, "error", elapsed)
		// Transport errors embed the request URL, so the token must be
		// scrubbed here too.
		c.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"operation":  operation,
			"error":      c.redact(err.Error()),
		}).Debug("rayleighconnect request failed")
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}

	c.metrics.observe(operation, strconv.Itoa(resp.StatusCode()), elapsed)
	c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"url":        c.redact(resp.Request.URL),
		"status":     resp.StatusCode(),
		"duration":   elapsed.String(),
	}).Debug("rayleighconnect request")

	if !resp.IsSuccess() {
		return nil, c.statusError(resp, requestID)
	}
	return resp, nil
}

// statusError converts a non-2xx response into the matching error kind.
// Statuses without a specific meaning, 5xx included, become *ServerError so
// the taxonomy stays closed.
func (c *Client) statusError(resp *resty.Response, requestID string) error {
	base := apiError{
		StatusCode: resp.StatusCode(),
		RequestID:  requestID,
		Message:    apiMessage(resp.Body(), resp.Status()),
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthenticationError{base}
	case http.StatusNotFound:
		return &NotFoundError{base}
	case http.StatusTooManyRequests:
		return &RateLimitError{apiError: base, RetryAfter: retryAfter(resp.Header())}
	default:
		return &ServerError{base}
	}
}

// apiMessage extracts the server-provided error text when the body carries
// the API's JSON error shape, falling back to the HTTP status line.
func apiMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return status
}

// retryAfter parses a delay-seconds Retry-After header, zero when absent or
// in the alternative HTTP-date form.
func retryAfter(header http.Header) time.Duration {
	seconds, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// redact strips the access token from a URL destined for a log line, in
// both its query-escaped and raw forms.
func (c *Client) redact(requestURL string) string {
	redacted := strings.ReplaceAll(requestURL, url.QueryEscape(c.accessToken), "***")
	return strings.ReplaceAll(redacted, c.accessToken, "***")
}

// operationFromPath reduces a request path to its leading segment, keeping
// metric label cardinality bounded ("data", "devices", ...).
func operationFromPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
