// Package catalog indexes a directory of playable clips by their headers.
//
// A Store is owned by its caller; nothing is shared through package state.
// The index only changes on an explicit Refresh.
package catalog
