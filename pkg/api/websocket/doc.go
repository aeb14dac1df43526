// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/goals/:id/ws to receive lifecycle events for
// one execution as it advances through the stage machine.
package websocket
