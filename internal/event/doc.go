// Package event turns a Claude Code hook payload into the canonical state
// record the companion app consumes.
//
// Classification is a pure table lookup on hook_event_name. Unknown event
// names are never dropped: they are forwarded with status "unknown" and the
// raw name preserved, so the listener can handle new hook kinds without a
// client update.
package event
