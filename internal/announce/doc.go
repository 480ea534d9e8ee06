// Package announce advertises a connected portal host over mDNS and
// finds other portal hosts on the local network.
//
// While the controller is connected in station mode the Announcer
// registers an "_http._tcp" service under the configured host name with
// TXT records describing the portal:
//
//	path=/_ac       portal root
//	state=connected controller state
//	title=...       portal title
//	ver=...         build version
//
// The registration is withdrawn when the station link drops. Browse
// collects every service carrying a path=/_ac record.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Peers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package announce
