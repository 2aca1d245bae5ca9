package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	UpdateTimeout = 2 * time.Minute
	ModalTimeout  = 15 * time.Second
	SearchTimeout = 10 * time.Second
)

type Service interface {
	UpdateResult(ctx context.Context, force bool) error
	OpenImageModal(ctx context.Context, url string)
	SearchImage(ctx context.Context, base64OrURL string) error
}

type ModalCloser interface {
	CloseImageModal()
}

type UpdateDoneMsg struct {
	Err      error
	Duration time.Duration
	Source   string
}

type ModalOpenedMsg struct {
	URL string
}

type SearchSentMsg struct {
	Query string
}

type SearchErrorMsg struct {
	Err error
}

type OpenURLSuccessMsg struct {
	Status string
	Opened bool
}

type OpenURLErrorMsg struct {
	Err error
}

func UpdateCmd(service Service, force bool, source string, timeout time.Duration) tea.Cmd {
	if timeout <= 0 {
		timeout = UpdateTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()

		err := service.UpdateResult(ctx, force)
		return UpdateDoneMsg{Err: err, Duration: time.Since(start), Source: source}
	}
}

func OpenModalCmd(service Service, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ModalTimeout)
		defer cancel()

		service.OpenImageModal(ctx, url)
		return ModalOpenedMsg{URL: url}
	}
}

// CloseModalCmd runs off the event loop; closing publishes a snapshot back
// into the program.
func CloseModalCmd(closer ModalCloser) tea.Cmd {
	return func() tea.Msg {
		closer.CloseImageModal()
		return nil
	}
}

func SearchCmd(service Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), SearchTimeout)
		defer cancel()

		if err := service.SearchImage(ctx, query); err != nil {
			return SearchErrorMsg{Err: err}
		}
		return SearchSentMsg{Query: query}
	}
}

// OpenURLCmd falls back to the clipboard when no browser can be launched.
func OpenURLCmd(url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened in browser", Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

func CopyURLCmd(url string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Copied URL"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy URL to clipboard")}
	}
}
