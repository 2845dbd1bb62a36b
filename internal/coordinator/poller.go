package coordinator

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/dohr-michael/taskpilot/internal/channel"
)

// Refresher is what the poller drives.
type Refresher interface {
	Connection() channel.Status
	RequestRefresh(reason string) error
}

// Poller refreshes the task list on a cron schedule while the channel is open.
type Poller struct {
	spec string
	cron *cron.Cron
	log  *slog.Logger
}

// NewPoller parses spec (5-field cron or a descriptor such as "@every 30s").
func NewPoller(spec string, r Refresher, log *slog.Logger) (*Poller, error) {
	if log == nil {
		log = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	p := &Poller{spec: spec, cron: c, log: log.With("component", "poller")}
	if _, err := c.AddFunc(spec, func() { p.tick(r) }); err != nil {
		return nil, fmt.Errorf("parse poll schedule %q: %w", spec, err)
	}
	return p, nil
}

// Start begins polling in the background.
func (p *Poller) Start() {
	p.cron.Start()
	p.log.Debug("poller started", "spec", p.spec)
}

// Stop halts polling and waits for a running tick to return.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Poller) tick(r Refresher) {
	if r.Connection() != channel.StatusOpen {
		return
	}
	if err := r.RequestRefresh("poll"); err != nil {
		p.log.Debug("poll refresh skipped", "error", err)
	}
}
