package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storypulse-dev/storypulse/internal/models"
)

// Publisher flips scheduled posts to published once their publish time
// has passed. It runs on a cron cadence alongside the HTTP server.
type Publisher struct {
	db     *gorm.DB
	logger zerolog.Logger
	cron   *cron.Cron
}

func NewPublisher(db *gorm.DB, logger zerolog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		logger: logger.With().Str("component", "post_publisher").Logger(),
		cron:   cron.New(),
	}
}

// Start begins the periodic publish check. The first check runs
// immediately so a restart does not delay overdue posts.
func (p *Publisher) Start() error {
	if _, err := p.cron.AddFunc("@every 1m", p.publishDuePosts); err != nil {
		return err
	}

	p.publishDuePosts()
	p.cron.Start()

	p.logger.Info().Msg("Scheduled post publisher started")
	return nil
}

// Stop halts the cron loop and waits for an in-flight check to finish
func (p *Publisher) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.logger.Info().Msg("Scheduled post publisher stopped")
}

func (p *Publisher) publishDuePosts() {
	result := p.db.Model(&models.Post{}).
		Where("status = ? AND published_on IS NOT NULL AND published_on <= ?",
			models.PostStatusScheduled, time.Now()).
		Update("status", models.PostStatusPublished)

	if result.Error != nil {
		p.logger.Error().Err(result.Error).Msg("Failed to publish due posts")
		return
	}

	if result.RowsAffected > 0 {
		p.logger.Info().Int64("count", result.RowsAffected).Msg("Published due posts")
	}
}
