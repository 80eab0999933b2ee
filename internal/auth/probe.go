package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/mssola/useragent"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

// DeviceSignal describes the client device of one request.
type DeviceSignal struct {
	Name      string
	Browser   string
	OS        string
	Type      models.DeviceType
	UserAgent string
}

func (d DeviceSignal) snapshot() models.DeviceInfo {
	return models.DeviceInfo{
		Name:      d.Name,
		Browser:   d.Browser,
		OS:        d.OS,
		Type:      d.Type,
		UserAgent: d.UserAgent,
	}
}

// LocationSignal describes where one request came from.
type LocationSignal struct {
	Country   string
	City      string
	Timezone  string
	IPAddress string
	Latitude  *float64
	Longitude *float64
}

func (l LocationSignal) snapshot() models.LocationInfo {
	return models.LocationInfo{
		Country:   l.Country,
		City:      l.City,
		Timezone:  l.Timezone,
		IPAddress: l.IPAddress,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}

// Probe extracts device and location signals from a request.
type Probe interface {
	Probe(r *http.Request) (DeviceSignal, LocationSignal)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(r *http.Request) (DeviceSignal, LocationSignal)

// Probe calls f(r).
func (f ProbeFunc) Probe(r *http.Request) (DeviceSignal, LocationSignal) { return f(r) }

// HeaderProbe classifies the User-Agent header and reads geo headers set by the
// edge (Cloudflare style CF-* or generic X-Geo-*). It performs no lookups.
type HeaderProbe struct {
	// DirectOnly ignores X-Forwarded-For, X-Real-IP and the geo headers; only
	// the connection address is used.
	DirectOnly bool
}

var _ Probe = HeaderProbe{}

// Probe implements Probe.
func (p HeaderProbe) Probe(r *http.Request) (DeviceSignal, LocationSignal) {
	if r == nil {
		return DeviceSignal{Type: models.DeviceTypeUnknown}, LocationSignal{}
	}
	return classifyUserAgent(r.UserAgent()), p.location(r)
}

func (p HeaderProbe) location(r *http.Request) LocationSignal {
	if p.DirectOnly {
		// Without a trusted edge the geo headers are client supplied.
		return LocationSignal{IPAddress: ClientIP(r.RemoteAddr, "", "")}
	}

	loc := LocationSignal{
		Country:   normalizeCountry(firstHeader(r, "CF-IPCountry", "X-Geo-Country", "X-Country-Code")),
		City:      firstHeader(r, "CF-IPCity", "X-Geo-City"),
		Timezone:  firstHeader(r, "CF-Timezone", "X-Geo-Timezone"),
		IPAddress: ClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP")),
	}
	loc.Latitude = parseCoordinate(firstHeader(r, "CF-IPLatitude", "X-Geo-Latitude"), 90)
	loc.Longitude = parseCoordinate(firstHeader(r, "CF-IPLongitude", "X-Geo-Longitude"), 180)
	return loc
}

func classifyUserAgent(raw string) DeviceSignal {
	raw = strings.TrimSpace(raw)
	signal := DeviceSignal{UserAgent: raw, Type: models.DeviceTypeUnknown}
	if raw == "" {
		return signal
	}

	ua := useragent.New(raw)
	signal.Browser, _ = ua.Browser()
	signal.OS = ua.OSInfo().Name
	if signal.OS == "" {
		signal.OS = ua.OS()
	}
	signal.Name = ua.Platform()

	switch {
	case ua.Bot():
		signal.Type = models.DeviceTypeBot
	case isTablet(raw):
		signal.Type = models.DeviceTypeTablet
	case ua.Mobile():
		signal.Type = models.DeviceTypeMobile
	case signal.OS != "":
		signal.Type = models.DeviceTypeDesktop
	}
	return signal
}

func isTablet(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		return true
	}
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")
}

// ClientIP picks the originating client address: the first X-Forwarded-For hop,
// then X-Real-IP, then the connection's remote address.
func ClientIP(remoteAddr, forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if realIP = strings.TrimSpace(realIP); realIP != "" && net.ParseIP(realIP) != nil {
		return realIP
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(r.Header.Get(name)); value != "" {
			return value
		}
	}
	return ""
}

func normalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "XX" {
		return ""
	}
	return code
}

func parseCoordinate(raw string, limit float64) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < -limit || value > limit {
		return nil
	}
	return &value
}
