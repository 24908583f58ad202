// Package octoprint talks to OctoPrint servers.
//
// Client covers the REST endpoints the poll path needs (current job, passive
// login). Stream follows the server's SockJS websocket and reports the
// "current" and "history" frames as CurrentState values.
package octoprint
