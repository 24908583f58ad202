// Package refresher adapts the three sources of printer state to the
// reconcile engine.
//
// OnPushReceived handles payloads sent by the OctoPod plugin, OnLiveStateChanged
// handles websocket frames for the default printer, and OnBackgroundPollTick is
// the fallback poll for servers without push support. Each entry point reports
// exactly one Outcome per call. Failures are logged and classified, never
// returned to the caller.
package refresher
