package protection

import (
	"context"
	"fmt"
	"strings"

	"edgeguard/guard"
	"edgeguard/ipaddresses"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// InputError is returned for malformed administrative input. It is the caller's fault, not the store's.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %v: %v", e.Field, e.Reason)
}

type sourceInput struct {
	SourceID string `validate:"required,max=253,printascii,nospace"`
}

type adminImpl struct {
	logger    zerolog.Logger
	ledger    guard.ReputationLedger
	attacks   guard.AttackLogger
	analytics guard.Analytics
	validate  *validator.Validate
}

// NewAdministrator creates the operator facade. Reputation overrides also drop cached analytics views.
func NewAdministrator(logger zerolog.Logger, ledger guard.ReputationLedger, attacks guard.AttackLogger, analytics guard.Analytics) guard.Administrator {
	v := validator.New()
	v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
	})

	return &adminImpl{
		logger:    logger,
		ledger:    ledger,
		attacks:   attacks,
		analytics: analytics,
		validate:  v,
	}
}

func (a *adminImpl) Whitelist(ctx context.Context, sourceID string) (string, error) {
	return a.override(ctx, sourceID, guard.MaxScore, false)
}

func (a *adminImpl) Blacklist(ctx context.Context, sourceID string) (string, error) {
	return a.override(ctx, sourceID, guard.MinScore, true)
}

func (a *adminImpl) ClearCache() {
	a.analytics.ClearCache()
}

func (a *adminImpl) Reputation(ctx context.Context, sourceID string) (rec guard.ReputationRecord, err error) {
	source, err := a.source(sourceID)
	if err != nil {
		return
	}
	rec = a.ledger.Get(ctx, source)
	return
}

func (a *adminImpl) RecentAttacks(ctx context.Context, sourceID string) (list []guard.RecentAttack, err error) {
	source, err := a.source(sourceID)
	if err != nil {
		return
	}
	list = a.attacks.Recent(ctx, source)
	return
}

func (a *adminImpl) override(ctx context.Context, sourceID string, score int, blacklisted bool) (source string, err error) {
	source, err = a.source(sourceID)
	if err != nil {
		return
	}

	if err = a.ledger.SetAbsolute(ctx, source, score, blacklisted); err != nil {
		err = fmt.Errorf("failed to override reputation of %v: %w", source, err)
		return
	}

	a.logger.Info().Str("source", source).Bool("blacklisted", blacklisted).Msg("Operator changed source reputation")
	a.analytics.ClearCache()
	return
}

// source validates a raw identifier and returns its normalized form.
func (a *adminImpl) source(raw string) (string, error) {
	in := sourceInput{SourceID: strings.TrimSpace(raw)}
	if err := a.validate.Struct(in); err != nil {
		reason := err.Error()
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			reason = "failed the '" + verrs[0].Tag() + "' check"
		}
		return "", &InputError{Field: "sourceId", Reason: reason}
	}

	source := ipaddresses.NormalizeSourceID(in.SourceID)
	if source == ipaddresses.UnknownSource {
		return "", &InputError{Field: "sourceId", Reason: "not a usable source identifier"}
	}
	return source, nil
}
