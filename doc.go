/*
Package wordgate implements passwordless authentication by email-delivered
verification codes.

A user proves control of an email address by receiving a short code built
from wordlist words ("river stone") and submitting it back within a bounded
time window and a bounded number of attempts. A successful redemption issues
a signed, stateless session token.

The flow:

 1. The caller asks for a code via [Engine.RequestCode]. The engine rate
    limits the request, generates a code, saves it with a TTL (resetting the
    attempt counter) and hands it to the injected delivery collaborator.
 2. The user submits the code via [Engine.RedeemCode]. The engine enforces
    the attempt ceiling, matches case-insensitively, consumes the code on
    success and resolves the identity — rejecting unknown users or
    auto-provisioning them, depending on the caller's policy.
 3. Later requests authenticate with [Engine.VerifyToken], a pure signature
    and expiry check with no store lookup.

Storage is pluggable behind [CodeStore] and [UserStore]; the store package
ships Redis and in-memory code stores and in-memory and Postgres user
stores. Delivery is pluggable behind [Deliverer]; the mailer package ships
an SMTP implementation.

Engines are assembled with the builder:

	eng, err := wordgate.New().
		WithConfig(cfg).
		WithCodeStore(store.NewRedisCodes(rdb, "auth:", cfg.RateLimit.Window)).
		WithUserStore(store.NewMemoryUsers()).
		WithDeliverer(mailer.New(mailCfg)).
		Build()

There are no background timers: code expiry is evaluated lazily on read and
the request cooldown on the next request.
*/
package wordgate
