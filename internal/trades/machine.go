package trades

import (
	"fmt"
	"slices"

	"github.com/moda-commerce/moda-backend/pkg/auth"
	"github.com/moda-commerce/moda-backend/pkg/db/models"
	"github.com/moda-commerce/moda-backend/pkg/enums"
	pkgerrors "github.com/moda-commerce/moda-backend/pkg/errors"
)

// Action names a trade operation. It is recorded on every status change.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionSubmitPayment   Action = "SUBMIT_PAYMENT"
	ActionConfirmPayment  Action = "CONFIRM_PAYMENT"
	ActionMarkShipped     Action = "MARK_SHIPPED"
	ActionConfirmDelivery Action = "CONFIRM_DELIVERY"
	ActionComplete        Action = "COMPLETE"
	ActionOpenDispute     Action = "OPEN_DISPUTE"
	ActionCancel          Action = "CANCEL"
	ActionReview          Action = "SUBMIT_REVIEW"
)

const (
	actorBuyer  = string(enums.RoleBuyer)
	actorSeller = string(enums.RoleSeller)
	actorSystem = string(enums.UserRoleSystem)
)

type rule struct {
	from   []enums.TradeStatus
	to     enums.TradeStatus
	actors []string
}

var rules = map[Action]rule{
	ActionSubmitPayment: {
		from:   []enums.TradeStatus{enums.TradeInitiated},
		to:     enums.TradePaymentPending,
		actors: []string{actorBuyer},
	},
	ActionConfirmPayment: {
		from:   []enums.TradeStatus{enums.TradePaymentPending},
		to:     enums.TradePaymentConfirmed,
		actors: []string{actorSeller},
	},
	ActionMarkShipped: {
		from:   []enums.TradeStatus{enums.TradePaymentConfirmed},
		to:     enums.TradeShipping,
		actors: []string{actorSeller},
	},
	ActionConfirmDelivery: {
		from:   []enums.TradeStatus{enums.TradeShipping},
		to:     enums.TradeDelivered,
		actors: []string{actorBuyer},
	},
	ActionComplete: {
		from:   []enums.TradeStatus{enums.TradeDelivered},
		to:     enums.TradeCompleted,
		actors: []string{actorBuyer, actorSystem},
	},
	ActionOpenDispute: {
		from:   []enums.TradeStatus{enums.TradeDelivered},
		to:     enums.TradeDisputed,
		actors: []string{actorBuyer, actorSeller},
	},
	ActionCancel: {
		from:   []enums.TradeStatus{enums.TradeInitiated, enums.TradePaymentPending, enums.TradePaymentConfirmed},
		to:     enums.TradeCancelled,
		actors: []string{actorBuyer, actorSeller},
	},
}

// Allowed reports whether actor may perform action on a trade in status.
func Allowed(action Action, status enums.TradeStatus, actor string) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	return slices.Contains(r.from, status) && slices.Contains(r.actors, actor)
}

// actorOf returns the side principal plays in trade. Background jobs act as SYSTEM.
func actorOf(trade *models.Trade, principal auth.Principal) (string, bool) {
	if principal.IsSystem() {
		return actorSystem, true
	}
	role, ok := trade.RoleOf(principal.UserID)
	if !ok {
		return "", false
	}
	return string(role), true
}

func invalidTransition(current enums.TradeStatus, action Action, actor string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("%s is not allowed for %s while trade is %s", action, actor, current)).
		WithDetails(map[string]any{
			"currentStatus": current,
			"action":        action,
			"actorRole":     actor,
		})
}
