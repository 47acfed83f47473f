// Package remap holds the pure half of mcro: the normalized event and action
// vocabularies and the fixed rule table that maps one to the other.
package remap
