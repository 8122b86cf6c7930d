// Package shared contains the error taxonomy used across the bot.
//
// Components return plain errors wrapped with context. When the caller needs
// to react to a category of failure (fatal startup error, failed send,
// missing visitor) the error is marked with a Kind:
//
//	if errors.Is(err, bot.ErrorUnauthorized) {
//	    return shared.MarkKind(err, shared.KindUnauthorized)
//	}
//
// and later classified:
//
//	switch shared.KindOf(err) {
//	case shared.KindUnauthorized, shared.KindValidation:
//	    // fatal at startup
//	case shared.KindDependencyFailure:
//	    // the bot platform or the store failed, log and keep going
//	}
//
// KindOf follows a fixed priority so that errors joined with errors.Join are
// classified deterministically: Canceled, Timeout, NotFound, Validation,
// Unauthorized, DependencyFailure, Internal.
//
// Error messages are lowercase without trailing punctuation so they compose
// when wrapped.
package shared
