// Package retry runs an operation with exponential backoff and jitter.
//
// The bot uses it at startup: the first getMe call and the first database
// ping are retried while the network or the database comes up, but an
// authentication failure stops the loop at once:
//
//	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
//	    b, err = bot.New(token, opts...)
//	    return err
//	}, func(err error) bool {
//	    return !errors.Is(err, bot.ErrorUnauthorized)
//	})
//
// DefaultRetryable recognises transient network errors that are still typed
// (EOF, connection reset, net timeouts).
//
// Delays grow by Multiplier from InitialDelay up to MaxDelay. With Jitter on,
// each delay is drawn from [d, 1.5d) and clamped to MaxDelay. MaxElapsedTime
// bounds the whole loop; the context deadline bounds every wait.
package retry
