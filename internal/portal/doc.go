// Package portal implements the controller that decides between station
// and access point operation.
//
// The controller is polled by its host. Each Poll consumes pending
// requests, then advances the state machine one step:
//
//	Init -> StartingAP | SeekingSTA | Failed
//	StartingAP -> CaptivePortal | SeekingSTA | Stopping
//	SeekingSTA -> Connected | CaptivePortal | Stopping
//	CaptivePortal -> SeekingSTA | Stopping
//	Connected -> SeekingSTA | StartingAP | Stopping
//	Stopping -> Stopped | StartingAP
//	Stopped -> SeekingSTA
//
// Connected is only entered from SeekingSTA. Any other transition is
// rejected and logged.
//
// Poll never blocks on a connection attempt. An attempt spans as many
// polls as it takes to connect, fail, or exceed BeginTimeout; the only
// in-poll wait is the optional ConnectPollStep.
//
// Other goroutines interact with a running controller through the
// Request* methods, which set edge-triggered flags consumed by the next
// Poll, and through Status, which returns a snapshot.
package portal
