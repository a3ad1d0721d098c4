package monitor

import (
	"context"

	"github.com/supersurf/supersurf/internal/desktop"
	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/profiles"
)

// Starter launches monitoring sessions. It satisfies the dispatcher's
// MonitorStarter dependency.
type Starter struct {
	cfg        Config
	classifier Classifier
	screen     desktop.Screen
	sounds     Sounds
}

func NewStarter(cfg Config, classifier Classifier, screen desktop.Screen, sounds Sounds) *Starter {
	return &Starter{cfg: cfg, classifier: classifier, screen: screen, sounds: sounds}
}

// Start runs a monitoring session in the background. Without a classifier or
// screen there is nothing to watch, so done fires immediately and the
// pipeline resumes.
func (s *Starter) Start(ctx context.Context, profile *profiles.Profile, done func()) {
	if s.classifier == nil || s.screen == nil {
		l := observability.WithComponent("monitor")
		l.Warn().Msg("vision not configured, skipping monitoring session")
		if done != nil {
			done()
		}
		return
	}
	go New(s.cfg, s.classifier, s.screen, s.sounds).Run(ctx, profile, done)
}
