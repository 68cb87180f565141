package rayleigh

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// DecodeCredentials decodes the base64-encoded response from the
// rayleighconnect access token generator into a client id and access token.
//
// The response you get from the token generator at
// https://www.rayleighconnect.net/oauth2/authorize?client_id=uob&redirect_uri=urn:ietf:wg:oauth:2.0:oob&response_type=token
// is a base64-encoded JSON object carrying both values. Decoding is
// deterministic; surrounding whitespace from copy-pasting is tolerated.
//
// A string that is not valid base64, does not wrap a JSON object, or is
// missing either field fails with a *DecodingError and never yields a
// partial pair.
func DecodeCredentials(encoded string) (clientID, accessToken string, err error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", &DecodingError{Reason: "credential string is not valid base64", Err: err}
	}

	var payload struct {
		ClientID    string `json:"client_id"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return "", "", &DecodingError{Reason: "decoded credentials are not a JSON object", Err: err}
	}
	if payload.ClientID == "" {
		return "", "", &DecodingError{Reason: `decoded credentials are missing "client_id"`}
	}
	if payload.AccessToken == "" {
		return "", "", &DecodingError{Reason: `decoded credentials are missing "access_token"`}
	}

	return payload.ClientID, payload.AccessToken, nil
}
