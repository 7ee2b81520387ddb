// Package system describes the on-disk layout and typed documents of a game
// system in the content repository:
//
//	systems/<name>/system.rpg.json
//	systems/<name>/resources/<id>.json
//	systems/<name>/resources/<id>/resource.json
//	systems/<name>/resources/<id>/stats.rpgs
//	systems/<name>/resource_instances/**/*.json|*.rpg
//
// Raw documents are validated by the schema package before they are decoded
// here, so decoding is lenient and never fails.
package system
