//go:build apkey_ssid

package credential

// DefaultPolicy is the identity policy compiled into this binary.
const DefaultPolicy = PolicySSID
