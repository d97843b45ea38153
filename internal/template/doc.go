// Package template models the reusable episode layout: ordered segments
// (intro/content/outro) and declarative background-music rules.
package template
