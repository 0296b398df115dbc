// Package websocket provides real-time change streaming via WebSocket.
//
// Clients can connect to /api/v1/changes/ws to receive every ChangeSet
// published by the storage areas.
package websocket
