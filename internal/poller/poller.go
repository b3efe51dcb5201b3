// Package poller drives the status check of one purchase until it reaches a
// terminal status: check immediately, then on every tick.
package poller

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/localmarket/tokens-backend/internal/client"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultSuccessDelay = 1800 * time.Millisecond
)

// Messages shown to the purchaser.
const (
	MsgCreated   = "Pagamento Pix criado. Não atualize esta tela até a confirmação."
	MsgWaiting   = "Aguardando confirmação do Pix... não atualize esta tela."
	MsgTransient = "Pagamento criado. Aguardando confirmação automática do Pix em segundo plano..."
	MsgApproved  = "Pagamento confirmado! Seus tokens foram creditados com sucesso."
	MsgCancelled = "Pagamento cancelado ou rejeitado. Se desejar, inicie uma nova compra."
	MsgExpired   = "O QR Code expirou. Se desejar, inicie uma nova compra."
	MsgCredit    = "Pagamento confirmado, mas o crédito dos tokens falhou. Tentando novamente..."
)

var (
	// ErrMissingPurchaseID is returned by Run for an empty purchase id.
	ErrMissingPurchaseID = errors.New("missing purchase id")
	// ErrCreditFailed marks updates for an approved purchase whose credit
	// has not been applied yet.
	ErrCreditFailed = errors.New("token credit failed")
)

// State is the display state of an Update.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateTerminal State = "terminal"
	StateError    State = "error"
)

// Update is reported after every check.
type Update struct {
	State   State
	Status  string
	Message string
	Balance *int64
	Err     error
	At      time.Time
}

// Outcome is how a run ended.
type Outcome struct {
	Status      string
	Message     string
	Balance     *int64
	Destination string
}

// CheckFunc performs one status check.
type CheckFunc func(ctx context.Context, purchaseID string) (*client.StatusResponse, error)

// Controller polls one purchase. The zero values of Interval and
// SuccessDelay select the defaults.
type Controller struct {
	Check        CheckFunc
	Interval     time.Duration
	SuccessDelay time.Duration
	// Role picks the destination after approval.
	Role     string
	OnUpdate func(Update)
	Now      func() time.Time
}

// ClientCheck adapts c to a CheckFunc.
func ClientCheck(c *client.Client) CheckFunc {
	return c.CheckStatus
}

// Destination is the dashboard for a profile role.
func Destination(role string) string {
	switch role {
	case "profissional":
		return "/dashboard/profissional"
	case "estabelecimento":
		return "/dashboard/estabelecimento"
	}
	return "/dashboard/cliente"
}

// Run polls purchaseID until it is approved, cancelled or expired, or ctx
// ends. Errors never stop the loop; only ctx does.
func (c *Controller) Run(ctx context.Context, purchaseID string) (Outcome, error) {
	purchaseID = strings.TrimSpace(purchaseID)
	if purchaseID == "" {
		return Outcome{}, ErrMissingPurchaseID
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	lg := log.Ctx(ctx).With().Str("purchase_id", purchaseID).Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if out, done := c.poll(ctx, purchaseID); done {
			if out.Status == string(StateApproved) {
				if err := c.settle(ctx); err != nil {
					return out, err
				}
			}
			lg.Info().Str("status", out.Status).Msg("polling finished")
			return out, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs one check and reports whether polling is over.
func (c *Controller) poll(ctx context.Context, purchaseID string) (Outcome, bool) {
	res, err := c.Check(ctx, purchaseID)
	if ctx.Err() != nil {
		return Outcome{}, false
	}
	if err != nil {
		if client.ReasonOf(err) == "credit_failed" {
			c.emit(Update{State: StateError, Status: string(StateApproved), Message: MsgCredit, Err: ErrCreditFailed})
			return Outcome{}, false
		}
		log.Ctx(ctx).Debug().Err(err).Str("purchase_id", purchaseID).Msg("status check failed")
		c.emit(Update{State: StatePending, Status: "pending", Message: MsgTransient, Err: err})
		return Outcome{}, false
	}

	switch res.Status {
	case "approved":
		c.emit(Update{State: StateApproved, Status: res.Status, Message: MsgApproved, Balance: res.NewBalance})
		return Outcome{Status: res.Status, Message: MsgApproved, Balance: res.NewBalance, Destination: Destination(c.Role)}, true
	case "cancelled":
		c.emit(Update{State: StateTerminal, Status: res.Status, Message: MsgCancelled})
		return Outcome{Status: res.Status, Message: MsgCancelled}, true
	case "expired":
		c.emit(Update{State: StateTerminal, Status: res.Status, Message: MsgExpired})
		return Outcome{Status: res.Status, Message: MsgExpired}, true
	}
	c.emit(Update{State: StatePending, Status: "pending", Message: MsgWaiting})
	return Outcome{}, false
}

// settle holds the success state for SuccessDelay before navigating away.
func (c *Controller) settle(ctx context.Context) error {
	d := c.SuccessDelay
	if d <= 0 {
		d = DefaultSuccessDelay
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Controller) emit(u Update) {
	if c.OnUpdate == nil {
		return
	}
	if c.Now != nil {
		u.At = c.Now()
	} else {
		u.At = time.Now()
	}
	c.OnUpdate(u)
}
