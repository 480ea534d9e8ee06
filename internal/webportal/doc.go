// Package webportal is the HTTP side of the captive portal.
//
// Every request is classified with portal.Classify against the current
// menu and home URI, then answered with JSON:
//
//	/_ac            status snapshot (Refresh header from the uptime setting)
//	/_ac/config     scan results, saved networks flagged
//	/_ac/open       saved networks without passphrases
//	/_ac/connect    POST form, queues a connect request
//	/_ac/disc       queues a disconnect
//	/_ac/reset      POST, queues a reset
//	/_ac/result     redirects to success or fail once the attempt settles
//	/_ac/scan       POST, queues a rescan
//	/_ac/info       build and host information
//	/_ac/events     websocket feed of status snapshots
//
// While the controller is in the captive portal state, requests for any
// host other than the access point address are redirected to the portal
// so that operating system captive portal probes open it.
//
// The Server satisfies portal.WebServer. It is built before the
// controller and attached with SetController.
package webportal
