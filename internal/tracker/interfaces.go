package tracker

import (
	"context"
	"net/url"

	"pix360/internal/client"
	"pix360/internal/history"
	"pix360/internal/job"
)

// Client is the subset of the conversion server API the tracker uses.
type Client interface {
	Start(ctx context.Context, form url.Values) (string, error)
	Status(ctx context.Context, id string) (*client.StatusResponse, error)
	Retry(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]client.Conversion, error)
}

// Presenter renders job cards.
type Presenter interface {
	AddPending(id, title string)
	RenderFailed(id, title string)
	RenderCompleted(id, title string, media job.MediaKind)
	Remove(id string)
}

// Navigator leaves the current view, e.g. back to the login page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Journal records job events.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) error
}

type nopPresenter struct{}

func (nopPresenter) AddPending(string, string)                     {}
func (nopPresenter) RenderFailed(string, string)                   {}
func (nopPresenter) RenderCompleted(string, string, job.MediaKind) {}
func (nopPresenter) Remove(string)                                 {}
