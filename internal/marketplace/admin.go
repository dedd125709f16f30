package marketplace

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/skilltoken"
	"github.com/sudo-init-do/skillflow/internal/validation"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

// EmergencyCancel force-refunds any non-terminal service while emergency mode
// is active.
func (e *Engine) EmergencyCancel(ctx context.Context, serviceID uint64, admin string) (ServiceRequest, error) {
	const op = "emergency_cancel"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		if err := e.requireAdmin(op, admin); err != nil {
			return nil, err
		}
		if !e.emergencyActive(tick) {
			return nil, apperr.New(op, apperr.InvalidState, "emergency mode is not active")
		}
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if s.Status.Terminal() {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		refunded, err := e.escrow.Refund(serviceID, s.Client, tick)
		if err != nil {
			return nil, err
		}
		prev := s.Status
		s.Status = Cancelled
		e.stats.ServicesCancelled++
		out = *s
		return []events.Event{e.event(events.ServiceEmergencyCanceled, s, admin, tick, map[string]any{
			"refunded":        refunded,
			"previous_status": prev.String(),
		})}, nil
	})
	return out, err
}

// SetPlatformActive pauses or resumes service creation and applications.
func (e *Engine) SetPlatformActive(admin string, active bool) (Platform, error) {
	return e.admin("set_platform_active", admin, func(uint64) error {
		e.platform.Active = active
		return nil
	})
}

// EmergencyPause pauses the platform and turns on emergency mode.
func (e *Engine) EmergencyPause(admin string) (Platform, error) {
	return e.admin("emergency_pause", admin, func(tick uint64) error {
		e.platform.Active = false
		e.platform.EmergencyMode = true
		e.platform.EmergencyActivatedAt = tick
		return nil
	})
}

// SetEmergencyMode toggles emergency mode; it lapses EmergencyTimeout ticks
// after activation.
func (e *Engine) SetEmergencyMode(admin string, on bool) (Platform, error) {
	return e.admin("set_emergency_mode", admin, func(tick uint64) error {
		e.platform.EmergencyMode = on
		if on {
			e.platform.EmergencyActivatedAt = tick
		}
		return nil
	})
}

func (e *Engine) SetTreasury(admin, treasury string) (Platform, error) {
	return e.admin("set_treasury", admin, func(uint64) error {
		if err := checkTreasury("set_treasury", treasury); err != nil {
			return err
		}
		e.platform.Treasury = treasury
		return nil
	})
}

// TopUp credits an account's wallet.
func (e *Engine) TopUp(admin, account string, amount uint64) (wallet.Transaction, error) {
	const op = "top_up"
	var tx wallet.Transaction
	_, err := e.admin(op, admin, func(uint64) error {
		if !validation.IsValidPrincipal(account) {
			return apperr.New(op, apperr.InvalidInput, "invalid account")
		}
		var err error
		tx, err = e.wallets.Deposit(account, amount, "admin:"+admin)
		return err
	})
	return tx, err
}

// MintSkill issues SKILL tokens to account and returns its new balance.
func (e *Engine) MintSkill(admin, account string, amount uint64) (uint64, error) {
	const op = "mint_skill"
	var balance uint64
	_, err := e.admin(op, admin, func(uint64) error {
		issuer, ok := e.tokens.(skilltoken.Issuer)
		if !ok {
			return apperr.New(op, apperr.SkillTokenContractNotSet, "token ledger cannot mint")
		}
		if !validation.IsValidPrincipal(account) {
			return apperr.New(op, apperr.InvalidInput, "invalid account")
		}
		if err := issuer.Mint(account, amount); err != nil {
			return err
		}
		balance = issuer.Balance(account)
		return nil
	})
	return balance, err
}

// SkillBalance is account's SKILL balance, or 0 when the ledger is not
// readable.
func (e *Engine) SkillBalance(account string) uint64 {
	if issuer, ok := e.tokens.(skilltoken.Issuer); ok {
		return issuer.Balance(account)
	}
	return 0
}

func (e *Engine) admin(op, caller string, fn func(tick uint64) error) (Platform, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tick := e.clock.Now()
	if err := e.requireAdmin(op, caller); err != nil {
		e.reject(op, err)
		return Platform{}, err
	}
	if err := fn(tick); err != nil {
		e.reject(op, err)
		return Platform{}, err
	}
	e.log.WithFields(logrus.Fields{"op": op, "actor": caller, "tick": tick}).Info("platform updated")
	return e.platformView(tick), nil
}

func (e *Engine) reject(op string, err error) {
	e.log.WithFields(logrus.Fields{"op": op, "kind": apperr.KindOf(err)}).WithError(err).Debug("operation rejected")
	if e.rejects != nil {
		e.rejects.ObserveRejection(op, apperr.KindOf(err))
	}
}

// Platform returns the switch state; an expired emergency reads as off.
func (e *Engine) Platform() Platform {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.platformView(e.clock.Now())
}

func (e *Engine) platformView(tick uint64) Platform {
	p := e.platform
	p.EmergencyMode = e.emergencyActive(tick)
	return p
}
