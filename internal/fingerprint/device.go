package fingerprint

import (
	"crypto/tls"
	"math/rand"
	"time"
)

// ScreenResolution is the claimed display size of an identity.
type ScreenResolution struct {
	Width  int
	Height int
}

// WebGLDescriptor is the claimed GPU identity. It feeds selection biasing and
// diagnostics only; no canvas is ever rendered.
type WebGLDescriptor struct {
	Vendor   string
	Renderer string
}

// TLSDescriptor names a cipher-suite ordering consistent with a browser
// family's ClientHello. Applied to the transport's tls.Config so the hello
// shape roughly matches the claimed User-Agent. This is profile simulation,
// not library-level JA3 spoofing.
type TLSDescriptor struct {
	Name         string
	MinVersion   uint16
	CipherSuites []uint16
}

// NavigationPattern tags how an identity moves through the site.
type NavigationPattern struct {
	Name   string
	Weight float64
}

// SessionBehavior bounds how long an identity plausibly browses before a real
// person would leave.
type SessionBehavior struct {
	Name         string
	MaxPageViews int
	MaxDuration  time.Duration
	Weight       float64
}

var desktopResolutions = []ScreenResolution{
	{1920, 1080},
	{2560, 1440},
	{1680, 1050},
	{1440, 900},
	{3840, 2160},
}

var mobileResolutions = []ScreenResolution{
	{390, 844},
	{412, 915},
	{375, 812},
	{360, 800},
}

var gpuDescriptors = []WebGLDescriptor{
	{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6700 XT Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	{"Apple Inc.", "Apple M2"},
	{"Apple Inc.", "Apple M3 Pro"},
}

var navigationPatterns = []Weighted[NavigationPattern]{
	{Item: NavigationPattern{Name: "headline-skimmer"}, Weight: 3},
	{Item: NavigationPattern{Name: "deep-reader"}, Weight: 2},
	{Item: NavigationPattern{Name: "match-checker"}, Weight: 2},
	{Item: NavigationPattern{Name: "wanderer"}, Weight: 1},
}

var sessionBehaviors = []Weighted[SessionBehavior]{
	{Item: SessionBehavior{Name: "quick-glance", MaxPageViews: 4, MaxDuration: 3 * time.Minute}, Weight: 3},
	{Item: SessionBehavior{Name: "casual-browse", MaxPageViews: 12, MaxDuration: 10 * time.Minute}, Weight: 2},
	{Item: SessionBehavior{Name: "long-read", MaxPageViews: 25, MaxDuration: 25 * time.Minute}, Weight: 1},
}

// SampleScreen draws a plausible resolution for the device class.
func SampleScreen(rng *rand.Rand, mobile bool) ScreenResolution {
	pool := desktopResolutions
	if mobile {
		pool = mobileResolutions
	}
	return pool[rng.Intn(len(pool))]
}

// SampleWebGL draws a GPU descriptor.
func SampleWebGL(rng *rand.Rand) WebGLDescriptor {
	return gpuDescriptors[rng.Intn(len(gpuDescriptors))]
}

// TLSDescriptorFor returns the cipher ordering matching the profile family.
// Orders follow the preference lists of current Chrome and Firefox builds;
// Safari and crawlers share the Chrome-like ordering, which is the least
// remarkable default.
func TLSDescriptorFor(family Family) TLSDescriptor {
	switch family {
	case FamilyFirefox:
		return TLSDescriptor{
			Name:       "firefox",
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_CHACHA20_POLY1305_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			},
		}
	default:
		return TLSDescriptor{
			Name:       "chromium",
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_AES_128_GCM_SHA256,
				tls.TLS_AES_256_GCM_SHA384,
				tls.TLS_CHACHA20_POLY1305_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			},
		}
	}
}
