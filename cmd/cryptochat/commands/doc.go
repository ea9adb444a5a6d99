// Package commands defines the cryptochat CLI.
//
// Commands
//
//   - serve             Listen for invitations and chat from the console
//   - connect <peer>    Like serve, but immediately invite a peer
//   - peers add|list|rm Manage the local address book
//   - config init|show  Write or print the configuration
//
// # Console
//
// serve and connect run an interactive console on stdin. Plain lines are
// sent as chat messages; lines starting with a slash are commands:
//
//	/connect <peer>  invite a saved peer name or host[:port]
//	/cancel          abandon an outgoing invitation
//	/stop            end the current session
//	/state           print what the engine is doing
//	/peers           list saved peers
//	/quit            end everything and exit
//
// Incoming invitations are answered with y or n. When stdin is not a
// terminal they are declined unless --auto-accept is set.
package commands
