package telegram

import (
	"context"
	"log"
	"time"
)

const (
	pollTimeoutSeconds = 25
	pollRetryPause     = 3 * time.Second
)

// Poller pulls updates over getUpdates and feeds them to the handler, used
// when no public webhook endpoint is available.
type Poller struct {
	Client  *Client
	Handler Handler
}

// Run long-polls until ctx is canceled. Transport errors back off briefly and
// the loop keeps going; handler errors are logged per update.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Client.DeleteWebhook(ctx); err != nil {
		log.Printf("poll: delete webhook: %v", err)
	}
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		updates, err := p.Client.GetUpdates(ctx, offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("poll: get updates: %v", err)
			select {
			case <-time.After(pollRetryPause):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if err := Route(ctx, p.Handler, upd); err != nil {
				log.Printf("poll: update %d: %v", upd.UpdateID, err)
			}
		}
	}
}
