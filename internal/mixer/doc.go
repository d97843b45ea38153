// Package mixer lays out template segments around the edited content and
// overlays background music per the template's music rules, with fades,
// offsets, looping, and optional ducking under speech. Music is overlaid,
// never appended: mixing cannot change the episode duration.
package mixer
