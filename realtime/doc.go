// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime delivers "room changed" notifications to open connections.

Handlers call Publish after committing a change. Every WebSocket watching
the room holds a subscription, wakes up, and sends a fresh room view.

	ch, cancel := broker.Subscribe(roomID)
	defer cancel()
	for range ch {
		// reload and push
	}

Two brokers exist:

  - Hub: in-process, used when only one API instance runs
  - RedisBroker: Redis pub/sub (redigo) relayed into a local Hub, so
    instances behind a load balancer see each other's writes

Notifications coalesce. A slow subscriber sees one wake-up for any number
of changes, then reads the latest state.
*/
package realtime
