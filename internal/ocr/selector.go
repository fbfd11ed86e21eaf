package ocr

import (
	"context"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/logc/scorecard-ocr/internal/logging"
)

// Selector runs the classical engine under several profiles and keeps the
// longest non-empty output.
type Selector struct {
	engine TextEngine
	base   Profile
	log    *logging.Logger
}

// NewSelector creates a selector around the user's profile.
func NewSelector(engine TextEngine, base Profile, log *logging.Logger) *Selector {
	if log == nil {
		log = logging.Nop()
	}
	return &Selector{engine: engine, base: base, log: log.WithComponent("selector")}
}

// Profiles returns the user's profile followed by the single-column and
// uniform-block variants.
func (s *Selector) Profiles() []Profile {
	return []Profile{
		s.base,
		s.base.WithPSM(PSMSingleColumn),
		s.base.WithPSM(PSMUniformBlock),
	}
}

// Select returns the longest trimmed candidate. When every profile fails or
// comes back blank, the user's profile is run once more and its raw output
// returned as is.
func (s *Selector) Select(ctx context.Context, img image.Image) (string, error) {
	var candidates []string
	for _, p := range s.Profiles() {
		text, err := s.engine.Text(ctx, img, p)
		if err != nil {
			s.log.Debug().Err(err).Str("profile", p.String()).Msg("profile failed")
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}

	if len(candidates) > 0 {
		return Longest(candidates), nil
	}

	s.log.Debug().Str("profile", s.base.String()).Msg("no usable candidate, re-running base profile")
	return s.engine.Text(ctx, img, s.base)
}

// Longest returns the candidate with the most characters; the first one wins
// a tie.
func Longest(candidates []string) string {
	best, bestLen := "", -1
	for _, c := range candidates {
		if n := utf8.RuneCountInString(c); n > bestLen {
			best, bestLen = c, n
		}
	}
	return best
}
