package store

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/glabrego/imgsearch-cli/internal/messaging"
	"github.com/glabrego/imgsearch-cli/internal/payload"
)

var ErrEmptyQuery = errors.New("empty search image")

// SearchImage asks the background process to search for an image given as a
// URL or base64 data URL. Results arrive later as update notifications.
func (s *Store) SearchImage(ctx context.Context, base64OrURL string) error {
	base64OrURL = strings.TrimSpace(base64OrURL)
	if base64OrURL == "" {
		return ErrEmptyQuery
	}
	req, err := messaging.NewRequest(messaging.JobBeginImageSearch, messaging.BeginImageSearch{Base64OrURL: base64OrURL})
	if err != nil {
		return err
	}
	if err := s.deps.Sender.Send(ctx, req); err != nil {
		return fmt.Errorf("begin image search: %w", err)
	}
	s.log.Info().Bool("inline", payload.IsDataURL(base64OrURL)).Msg("image search requested")
	return nil
}

// UploadSearch encodes img and searches for it.
func (s *Store) UploadSearch(ctx context.Context, img image.Image) error {
	encoded, err := payload.EncodeImage(img)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	return s.SearchImage(ctx, encoded)
}
