package presentation

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Renderer draws what the engine decides. Calls come from the engine's Run
// goroutine only.
type Renderer interface {
	ShowPairing(identity model.Identity)
	ShowWaiting()
	ShowSlide(index int, slide model.Slide, kind Kind)
	HighlightItem(index, item, total int)
	ShowReconnecting(visible bool)
	ShowName(name string)
}

// LogRenderer writes every render call to the log. It backs the headless
// display command.
type LogRenderer struct{}

var _ Renderer = LogRenderer{}

func (LogRenderer) ShowPairing(identity model.Identity) {
	log.Info().Str("screen_id", identity.ScreenID).Str("pin", identity.PIN).Msg("showing pairing code")
}

func (LogRenderer) ShowWaiting() {
	log.Info().Msg("waiting for content")
}

func (LogRenderer) ShowSlide(index int, slide model.Slide, kind Kind) {
	log.Info().Int("index", index).Str("kind", kind.String()).Int("bytes", len(slide)).Msg("showing slide")
}

func (LogRenderer) HighlightItem(index, item, total int) {
	log.Debug().Int("index", index).Int("item", item).Int("total", total).Msg("highlighting list item")
}

func (LogRenderer) ShowReconnecting(visible bool) {
	if visible {
		log.Warn().Msg("connection lost, reconnecting")
		return
	}
	log.Info().Msg("connection restored")
}

func (LogRenderer) ShowName(name string) {
	log.Info().Str("name", name).Msg("screen name updated")
}
