// Package cards projects tracked jobs into result cards.
//
// A Board holds one card per job id in insertion order. Rendering is a pure
// function of the card fields, so a card rendered twice into the same state
// produces identical markup. Operations on ids the board does not hold are
// no-ops.
package cards
