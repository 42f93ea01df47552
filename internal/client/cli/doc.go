// Package cli provides the interactive todo-list command-line client.
//
// It wires configuration, the HTTP gateway, the client auth service and a
// REPL. On start it tries to resume the previous session from the refresh
// cookie; when the server later rejects the session the REPL drops back to
// the logged-out state and asks the user to log in again.
//
// Commands: signup, login, whoami, logout, help, exit.
package cli
