// Package eventloop provides the scheduling contexts that reactor
// notifications run on.
//
// A Loop executes tasks handed to it by the reactor: connection and
// disconnection notifications and the dispatch of received data. Two
// implementations are provided:
//
//   - Inline runs every task on the calling goroutine. Notifications for one
//     connection are then delivered by that connection's receive goroutine,
//     so handlers for different connections run concurrently.
//   - Serial runs every task on a single goroutine in submission order. All
//     handler calls are serialized, and per-connection ordering follows from
//     the FIFO queue.
//
// Any other scheduler can be adapted with Func.
package eventloop
