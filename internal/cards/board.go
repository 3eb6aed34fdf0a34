package cards

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"sync"

	"pix360/internal/job"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var cardTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Card is the rendered projection of one job.
type Card struct {
	ID          string
	Title       string
	State       job.State
	Media       job.MediaKind
	DownloadURL string
}

// MediaLabel names the asset kind for alt text.
func (c Card) MediaLabel() string {
	if c.Media == job.MediaVideo {
		return "Video"
	}
	return "Image"
}

// Option customizes a Board.
type Option func(*Board)

// WithDownloadBase sets the server root used for download links. Links are
// relative when unset.
func WithDownloadBase(base string) Option {
	return func(b *Board) {
		b.downloadBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// Board is an ordered set of cards keyed by job id.
type Board struct {
	mu           sync.RWMutex
	order        []string
	cards        map[string]*Card
	focused      string
	version      uint64
	downloadBase string
}

// NewBoard returns an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{cards: make(map[string]*Card)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddPending appends a loading card and focuses it. An existing card with the
// same id is reset to pending in place.
func (b *Board) AddPending(id, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	title = job.NormalizeTitle(title)
	if card, ok := b.cards[id]; ok {
		card.Title = title
		card.State = job.StatePending
		card.Media = job.MediaUnknown
	} else {
		b.cards[id] = &Card{
			ID:          id,
			Title:       title,
			State:       job.StatePending,
			DownloadURL: b.downloadURL(id),
		}
		b.order = append(b.order, id)
	}
	b.focused = id
	b.version++
}

// RenderFailed replaces the card content with the failure view.
func (b *Board) RenderFailed(id, title string) {
	b.update(id, func(card *Card) {
		card.Title = job.NormalizeTitle(title)
		card.State = job.StateFailed
		card.Media = job.MediaUnknown
	})
}

// RenderCompleted replaces the card content with the finished asset view.
func (b *Board) RenderCompleted(id, title string, media job.MediaKind) {
	if media == job.MediaUnknown {
		media = job.MediaImage
	}
	b.update(id, func(card *Card) {
		card.Title = job.NormalizeTitle(title)
		card.State = job.StateCompleted
		card.Media = media
	})
}

func (b *Board) update(id string, fn func(*Card)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	card, ok := b.cards[id]
	if !ok {
		return
	}
	before := *card
	fn(card)
	if *card != before {
		b.version++
	}
}

// Remove drops the card for id.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cards[id]; !ok {
		return
	}
	delete(b.cards, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if b.focused == id {
		b.focused = ""
	}
	b.version++
}

// Card returns a copy of the card for id.
func (b *Board) Card(id string) (Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	card, ok := b.cards[id]
	if !ok {
		return Card{}, false
	}
	return *card, true
}

// Cards returns the cards in insertion order.
func (b *Board) Cards() []Card {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Card, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.cards[id])
	}
	return out
}

// Len returns the number of cards.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Focused returns the id of the most recently added card that still exists.
func (b *Board) Focused() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.focused
}

// Version increases on every visible change.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// HTML renders the whole results area.
func (b *Board) HTML() (string, error) {
	var buf bytes.Buffer
	if err := b.WriteHTML(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteHTML renders the results area into w.
func (b *Board) WriteHTML(w io.Writer) error {
	if err := cardTemplates.ExecuteTemplate(w, "board", b.Cards()); err != nil {
		return fmt.Errorf("render board: %w", err)
	}
	return nil
}

// CardHTML renders a single card.
func (b *Board) CardHTML(id string) (string, error) {
	card, ok := b.Card(id)
	if !ok {
		return "", fmt.Errorf("card %s not found", id)
	}
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, "card", card); err != nil {
		return "", fmt.Errorf("render card %s: %w", id, err)
	}
	return buf.String(), nil
}

func (b *Board) downloadURL(id string) string {
	return b.downloadBase + "/download/" + url.PathEscape(id)
}
