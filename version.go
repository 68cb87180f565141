package rayleigh

// Version is the client library version, reported in the User-Agent header.
const Version = "0.3.0"

func userAgent() string {
	return "rayleigh-api-go/" + Version
}
