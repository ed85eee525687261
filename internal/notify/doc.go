// Package notify pushes newly appended changelist entries to external
// systems.
//
// [Redis] publishes each entry as a JSON message on a pub/sub channel so that
// other services can react to new records without polling the changelist.
package notify
