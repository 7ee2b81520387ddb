// Package loader discovers system directories and reads their definition and
// resource files.
//
// Loading is per system: a missing, unreadable or malformed system.rpg.json
// fails only that system, reported through Entry.Failure. Problems with
// individual resource files are recorded as issues on the loaded System so
// the rest of the system can still be checked.
package loader
