// Package harness provides a conformance testing framework for rotation
// resolution.
//
// Scenarios are YAML files pairing rotation definition documents with a
// sequence of resolution queries. Each scenario runs against a fresh
// in-memory database: definitions are imported through the same loader
// and importer the CLI uses, then queries execute against the real
// resolver. Nothing is mocked between the scenario file and the answer.
//
// Results serialize to canonical JSON and compare against golden files,
// so any change to resolution semantics shows up as a byte-level diff.
// Inline expect clauses additionally pin the facts a scenario exists to
// prove (who is on call, which error code fires), keeping scenarios
// readable without opening the golden file.
package harness
