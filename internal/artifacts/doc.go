// Package artifacts provides the durable artifact store adapter used to
// persist intermediate and final pipeline outputs. Keys follow the canonical
// layout {owner_id}/episodes/{episode_id}/{stage}/{name}; artifacts are
// written once per stage output key and never mutated in place.
package artifacts
