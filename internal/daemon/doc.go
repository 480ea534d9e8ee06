// Package daemon assembles the portal controller and its collaborators
// from the daemon settings and runs them, either in the foreground or as
// an OS service.
//
// Components are built leaf-first:
//
//	settings -> store -> radio -> credentials -> dns, web -> controller -> mDNS
//
// The controller is the only writer of portal state. The web server and
// the mDNS announcer follow it through the status observer.
package daemon
