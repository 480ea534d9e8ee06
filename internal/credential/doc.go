// Package credential keeps the bounded set of networks the device has
// joined and picks which one to try next from a live scan.
//
// Credentials are identified either by BSSID (the default) or by SSID
// when the binary is built with the apkey_ssid tag. The choice is global;
// a persisted table records the policy that wrote it.
package credential
