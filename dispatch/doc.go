// Package dispatch runs plugin compute calls off the pulling goroutine.
//
// A Pool bounds how many submitted functions run at once with a channel
// semaphore. Submission never blocks: every call to Go starts a goroutine
// that waits for a slot, so callers can keep pulling input while earlier
// work is still queued. Each submission gets a Task whose single buffered
// result channel is read by Wait.
package dispatch
