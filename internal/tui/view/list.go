package view

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/glabrego/imgsearch-cli/internal/search"
	tuitheme "github.com/glabrego/imgsearch-cli/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type ItemLineParams struct {
	Item   search.Item
	Index  int
	Active bool
	Width  int
}

func RenderItemLine(p ItemLineParams, th tuitheme.Theme) string {
	cursorMarker := " "
	if p.Active {
		cursorMarker = ">"
	}
	prefix := fmt.Sprintf(" %s%3d. ", cursorMarker, p.Index+1)
	engine := "[" + string(p.Item.SearchEngine) + "] "
	size := DimensionsLabel(p.Item)

	width := p.Width
	if width <= 0 {
		width = 80
	}
	available := width - visibleLen(prefix) - visibleLen(engine) - 1 - visibleLen(size)
	if available < 1 {
		available = 1
	}

	label := truncateRunes(ItemLabel(p.Item), available)
	gap := width - visibleLen(prefix) - visibleLen(engine) - visibleLen(label) - visibleLen(size)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(p.Active, prefix+th.Engine.Render(engine)+label+strings.Repeat(" ", gap)+th.MetaLabel.Render(size))
}

// ItemLabel is the item title, falling back to its source URL.
func ItemLabel(item search.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	if src := strings.TrimSpace(item.SourceURL); src != "" {
		return src
	}
	return "(untitled)"
}

// DimensionsLabel renders the reported size, or nothing when the engine did
// not report one.
func DimensionsLabel(item search.Item) string {
	if item.ImageInfo.Width == nil || item.ImageInfo.Height == nil {
		return ""
	}
	return fmt.Sprintf("%.0f×%.0f", item.Width(), item.Height())
}

// ModalSizeLabel is the viewer size: width alone, or width and the height
// implied by the item's reported aspect ratio.
func ModalSizeLabel(item search.Item, width int) string {
	if width <= 0 {
		return ""
	}
	if DimensionsLabel(item) == "" {
		return fmt.Sprintf("%dpx", width)
	}
	height := int(math.Round(float64(width) * item.AspectRatio()))
	return fmt.Sprintf("%d×%dpx", width, height)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
