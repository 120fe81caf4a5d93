package types

// Version is the canonical project version.
// The CLI and the adapter payload contract share this version.
const Version = "0.3.0"

// ContractVersion is the version stamped on published run-completion events.
// Kept in lockstep with Version.
const ContractVersion = Version
