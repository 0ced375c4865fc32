package scanner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/registration"
)

// State of the scanner.
type State int

const (
	Idle      State = iota // camera off
	Scanning               // accepting frames
	Matched                // a code was read, frames are suppressed
	Navigated              // left for the registration screen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Matched:
		return "matched"
	case Navigated:
		return "navigated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Prompt is the dialog the view should show.
type Prompt string

const (
	PromptNone               Prompt = ""
	PromptInvalidCode        Prompt = "invalid_code"
	PromptRetry              Prompt = "retry"
	PromptConfirmMerchant    Prompt = "confirm_merchant"
	PromptConfirmTransaction Prompt = "confirm_transaction"
)

// ErrNothingPending is returned by Resolve when no code awaits confirmation.
var ErrNothingPending = errors.New("no scanned code awaiting confirmation")

// Outcome describes what one frame or confirmation did.
type Outcome struct {
	State        State                `json:"-"`
	StateName    string               `json:"state"`
	Suppressed   bool                 `json:"suppressed,omitempty"`
	Payload      *Payload             `json:"payload,omitempty"`
	Prompt       Prompt               `json:"prompt,omitempty"`
	Message      string               `json:"message,omitempty"`
	Route        string               `json:"route,omitempty"`
	Registration *registration.Result `json:"registration,omitempty"`
	// Unimplemented marks the transaction confirmation path, which grants
	// nothing.
	Unimplemented bool  `json:"unimplemented,omitempty"`
	Err           error `json:"-"`
}

// Registrar is the registration flow the scanner hands business codes to.
type Registrar interface {
	Register(ctx context.Context, customerID string, locationID int64) (registration.Result, error)
}

// Scanner serializes scanned frames for one customer.  Once a code matches,
// later frames are dropped unparsed until the match is resolved.
type Scanner struct {
	reg        Registrar
	customerID string
	log        *zap.Logger

	mu      sync.Mutex
	state   State
	gen     uint64 // bumped by Start and Stop
	pending *Payload
}

func New(reg Registrar, customerID string, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{reg: reg, customerID: customerID, log: log.With(zap.String("component", "scanner"))}
}

// State returns the current state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start turns the camera on.  It is a no-op while Scanning or Matched.
func (s *Scanner) Start() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle || s.state == Navigated {
		s.state = Scanning
		s.pending = nil
		s.gen++
	}
	return s.state
}

// Stop turns the camera off and drops any pending match.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
	s.pending = nil
	s.gen++
}

// Frame handles one decoded QR string.
func (s *Scanner) Frame(ctx context.Context, raw string) Outcome {
	s.mu.Lock()
	if s.state != Scanning {
		out := s.outcome(Outcome{Suppressed: true})
		s.mu.Unlock()
		return out
	}

	p, err := Parse(raw)
	if err != nil {
		out := s.outcome(Outcome{
			Prompt:  PromptInvalidCode,
			Message: "Código QR no válido",
			Err:     err,
		})
		s.mu.Unlock()
		return out
	}

	s.state = Matched
	s.pending = &p
	gen := s.gen

	switch p.Kind {
	case KindMerchant:
		out := s.outcome(Outcome{Payload: &p, Prompt: PromptConfirmMerchant, Message: "¿Deseas registrarte en este comercio?"})
		s.mu.Unlock()
		return out
	case KindTransaction:
		out := s.outcome(Outcome{Payload: &p, Prompt: PromptConfirmTransaction,
			Message: fmt.Sprintf("Se agregarán %s puntos a tu cuenta", p.Amount)})
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	res, err := s.reg.Register(ctx, s.customerID, p.LocationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// stopped while the registration was running
		return s.outcome(Outcome{Payload: &p, Registration: resultPtr(res, err), Err: err})
	}
	s.pending = nil
	if err != nil {
		s.state = Scanning
		s.log.Warn("registration from scan failed",
			zap.String("customer_id", s.customerID),
			zap.Int64("location_id", p.LocationID),
			zap.Error(err))
		return s.outcome(Outcome{Payload: &p, Prompt: PromptRetry, Message: "No se pudo registrar el comercio", Err: err})
	}
	s.state = Navigated
	return s.outcome(Outcome{
		Payload:      &p,
		Route:        "/register-business/" + strconv.FormatInt(p.LocationID, 10),
		Registration: &res,
	})
}

// Resolve answers the confirmation prompt of a legacy or transaction code.
// Either answer resumes scanning.
func (s *Scanner) Resolve(confirm bool) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Matched || s.pending == nil || s.pending.Kind == KindBusiness {
		return s.outcome(Outcome{Err: ErrNothingPending})
	}
	p := *s.pending
	s.pending = nil
	s.state = Scanning
	if !confirm {
		return s.outcome(Outcome{Payload: &p})
	}
	if p.Kind == KindMerchant {
		return s.outcome(Outcome{Payload: &p, Route: "/store/" + p.MerchantID})
	}
	s.log.Info("transaction code confirmed; point grant not implemented",
		zap.String("merchant_id", p.MerchantID), zap.String("amount", p.Amount))
	return s.outcome(Outcome{Payload: &p, Unimplemented: true})
}

// outcome stamps the current state.  Caller holds mu.
func (s *Scanner) outcome(o Outcome) Outcome {
	o.State = s.state
	o.StateName = s.state.String()
	return o
}

func resultPtr(res registration.Result, err error) *registration.Result {
	if err != nil {
		return nil
	}
	return &res
}
