// Package ws implements the relay hub: it pairs one WebSocket
// connection per blocked agent with any number of operator dashboard
// connections, delivers at most one response back to each agent and
// keeps dashboards informed of every session transition.
package ws
