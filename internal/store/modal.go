package store

import "context"

// OpenImageModal opens the viewer on url, sized to the image's natural
// width. When the width cannot be determined the configured default is used.
func (s *Store) OpenImageModal(ctx context.Context, url string) {
	s.mu.Lock()
	s.modalSeq++
	seq := s.modalSeq
	s.mu.Unlock()

	width, err := s.deps.Prober.Width(ctx, url)
	if err != nil || width <= 0 {
		width = s.deps.Options.Options().ModalWidth
		s.log.Debug().Err(err).Str("url", url).Int("width", width).Msg("using default modal width")
	}

	s.mu.Lock()
	if seq != s.modalSeq {
		// A later open or close won.
		s.mu.Unlock()
		return
	}
	s.snap.Modal.ImageWidth = width
	s.snap.Modal.ImageURL = url
	s.snap.Modal.Open = true
	s.commitLocked()
}

// CloseImageModal hides the viewer. Closing a closed viewer is a no-op.
func (s *Store) CloseImageModal() {
	s.mu.Lock()
	s.modalSeq++
	if !s.snap.Modal.Open {
		s.mu.Unlock()
		return
	}
	s.snap.Modal.Open = false
	s.commitLocked()
}
