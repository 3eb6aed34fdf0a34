// Package tui renders the card board in the terminal.
//
// The model redraws from a cards.Board snapshot on a short tick and never
// mutates cards itself; submit, retry and hide go through Actions so the
// tracker stays the only writer. Pending cards animate a spinner.
package tui
