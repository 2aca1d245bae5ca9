package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	tuitheme "github.com/glabrego/imgsearch-cli/internal/tui/theme"
)

type Mode int

const (
	ModeList Mode = iota
	ModeModal
	ModeSearch
)

func Toolbar(mode Mode) string {
	switch mode {
	case ModeModal:
		return "esc close | y copy URL | q quit"
	case ModeSearch:
		return "type an image URL | enter search | esc cancel"
	default:
		return "j/k move | enter view | o open source | y copy URL | / search | r reload | q quit"
	}
}

type FooterParams struct {
	Shown      int
	Pending    bool
	QueryBytes int
	UpdatedAt  time.Time
	Now        time.Time
}

func Footer(p FooterParams, th tuitheme.Theme) string {
	parts := []string{
		th.MetaValue.Render(fmt.Sprintf("%d shown", p.Shown)),
	}
	if p.Pending {
		parts = append(parts, th.StateLoad.Render("engines searching"))
	}
	if p.QueryBytes > 0 {
		parts = append(parts, th.MetaLabel.Render("query")+" "+th.MetaValue.Render(humanize.Bytes(uint64(p.QueryBytes))))
	}
	if !p.UpdatedAt.IsZero() {
		parts = append(parts, th.MetaLabel.Render("updated")+" "+th.MetaValue.Render(humanize.RelTime(p.UpdatedAt, p.Now, "ago", "from now")))
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, err error, status string, th tuitheme.Theme) string {
	switch {
	case err != nil:
		return fmt.Sprintf("%s: %s", th.StateWarn.Render("error"), err.Error())
	case status != "":
		return fmt.Sprintf("%s: %s", th.StateIdle.Render("state"), th.MetaValue.Render(status))
	case loading:
		return fmt.Sprintf("%s: loading", th.StateLoad.Render("state"))
	default:
		return fmt.Sprintf("%s: idle", th.StateIdle.Render("state"))
	}
}
