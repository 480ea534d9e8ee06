// Package captivedns answers every DNS query with the portal address so
// that clients joining the access point land on the captive portal.
package captivedns
