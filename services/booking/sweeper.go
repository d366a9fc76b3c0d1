package booking

import (
	"context"
	"time"

	"astrobook/models"
	"astrobook/utils"

	"go.uber.org/zap"
)

// ExpireHolds resolves pending holds whose expiry has passed. A hold whose intent
// succeeded is confirmed; any other hold is cancelled and its intent cancelled.
func (c *ReservationCoordinator) ExpireHolds(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	holds, err := c.Ledger.ListExpiredHolds(ctx, now)
	if err != nil {
		return res, utils.NewUpstreamError("booking ledger", err)
	}

	for i := range holds {
		b := &holds[i]
		res.Examined++
		log := c.logger.With(zap.String("bookingId", b.ID))

		if b.PaymentIntentID != "" {
			pctx, cancel := c.external(ctx)
			intent, err := c.Payments.GetPaymentIntent(pctx, b.PaymentIntentID)
			cancel()
			if err != nil {
				// The hold stays until the intent can be read.
				log.Warn("could not check payment intent of expired hold", zap.Error(err))
				res.Failed++
				continue
			}
			if intent.Status == models.IntentSucceeded {
				if _, err := c.Confirm(ctx, b.ID, models.PaymentSucceeded, models.ActorSweeper); err != nil {
					log.Error("failed to confirm paid hold", zap.Error(err))
					res.Failed++
					continue
				}
				res.Confirmed++
				continue
			}
			if intent.Status == models.IntentProcessing {
				log.Info("expired hold has a payment in flight, keeping it")
				continue
			}
			c.cancelIntent(ctx, b.PaymentIntentID, log)
		}

		changed, err := c.transition(ctx, b, models.StatusCancelled, models.ActorSweeper, "hold expired")
		if err != nil {
			log.Warn("failed to expire hold", zap.Error(err))
			res.Failed++
			continue
		}
		if changed {
			res.Abandoned++
		}
	}

	if res.Examined > 0 {
		c.logger.Info("hold sweep finished",
			zap.Int("examined", res.Examined), zap.Int("abandoned", res.Abandoned),
			zap.Int("confirmed", res.Confirmed), zap.Int("failed", res.Failed))
	}
	return res, nil
}
