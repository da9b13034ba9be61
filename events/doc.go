// Package events provides an ordered, in-process fan-out feed for
// resilience events.
//
// Circuit breakers and rate limiters publish state transitions, recorded
// call outcomes, and permission decisions to a Feed. Consumers subscribe to
// the feed and receive every event in emission order. The package ships one
// built-in consumer, RingLog, a fixed-capacity circular buffer that
// overwrites its oldest entry, useful for bounded-memory inspection of
// recent activity.
//
// # Usage
//
//	feed := events.NewFeed()
//	log, _ := events.NewRingLog(128)
//	feed.Subscribe(log)
//
//	feed.Subscribe(events.ConsumerFunc(func(e events.Event) {
//	    fmt.Println(e.Kind, e.Source)
//	}))
//
// Publish is synchronous: each subscriber's Consume runs on the publishing
// goroutine before Publish returns. Consumers must therefore be fast and
// must not block.
package events
