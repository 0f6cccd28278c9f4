// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services never touch the network or filesystem directly;
// all I/O goes through the driven ports.
package services
