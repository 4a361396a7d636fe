// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle: choosing the parameter
// space, fanning trials out over seeded streams, writing reports and serving
// trials over HTTP, decoupled from any specific entrypoint like a CLI.
package app
