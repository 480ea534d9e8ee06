// Package radio defines the contract between the portal controller and
// the Wi-Fi hardware, plus two implementations of it.
//
// # Driver Contract
//
// A Driver scans, joins networks in station mode, and raises a local
// access point. Connect is asynchronous: it only issues the request, and
// the caller observes completion by polling Status. This keeps the
// controller's poll cycle free of long blocking waits.
//
// # Implementations
//
//   - Simulator: an in-memory radio with scripted networks and outcomes.
//     Used by tests and by `autoconnectd run --simulate`.
//   - NMCLI: drives Linux NetworkManager through the nmcli command line
//     tool. Commands run through a Runner so tests can substitute canned
//     output.
//
// # Scan Order
//
// Consumers rely on scan results ordered by descending signal strength.
// SortBySignal produces that order; both drivers return sorted results.
package radio
