// Package main hosts the livecatalog CLI.
//
// The Cobra command tree records sessions from a local camera, browses and
// edits captured frames, turns frames into catalog products, and maintains
// the local store (stats, export, import, link reconciliation). Shared
// wiring such as configuration, logging, and store access lives in
// commandContext so subcommands stay small.
package main
