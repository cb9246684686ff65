package stock

import "github.com/example/material-stock/internal/domain/ledger"

// Command is a state machine input. The set of variants is closed.
type Command interface {
	Target() Status
	Validate() error
	command()
}

// Actor is the already-resolved identity issuing a command.
type Actor struct {
	User    *string
	Profile string
}

// IncomingCommand receives goods. With an empty StockID it opens a new
// stock; otherwise it receives an existing purchase or transfer.
type IncomingCommand struct {
	Actor
	StockID string
	Number  string
	Comment *string
	Lines   []MaterialLine
}

// PurchaseCommand opens or edits a purchase draft.
type PurchaseCommand struct {
	Actor
	StockID string
	Number  string
	Comment *string
	Lines   []MaterialLine
}

// PackageCommand allocates stock for assembling an order.
type PackageCommand struct {
	Actor
	Order   string
	Number  string
	Comment *string
	Lines   []MaterialLine
}

// TransferCommand moves goods from the actor's profile to Destination.
// Kind is StatusMoving or StatusDivide; a divide always belongs to an order.
type TransferCommand struct {
	Actor
	Kind        Status
	Destination string
	Order       *string
	Number      string
	Comment     *string
	Lines       []MaterialLine
}

type CancelCommand struct {
	Actor
	StockID string
	Comment *string
}

// DeleteCommand voids a single-line purchase draft.
type DeleteCommand struct {
	Actor
	StockID string
	Comment *string
}

func (IncomingCommand) Target() Status { return StatusIncoming }
func (PurchaseCommand) Target() Status { return StatusPurchase }
func (PackageCommand) Target() Status  { return StatusPackage }
func (c TransferCommand) Target() Status {
	return c.Kind
}
func (CancelCommand) Target() Status { return StatusCancel }
func (DeleteCommand) Target() Status { return StatusError }

func (IncomingCommand) command() {}
func (PurchaseCommand) command() {}
func (PackageCommand) command()  {}
func (TransferCommand) command() {}
func (CancelCommand) command()   {}
func (DeleteCommand) command()   {}

func (c IncomingCommand) Validate() error {
	if err := c.Actor.validate(); err != nil {
		return err
	}
	// Receiving an existing transfer may reuse its lines.
	if c.StockID == "" {
		return validateLines(c.Lines)
	}
	if len(c.Lines) == 0 {
		return nil
	}
	return validateLines(c.Lines)
}

func (c PurchaseCommand) Validate() error {
	if err := c.Actor.validate(); err != nil {
		return err
	}
	return validateLines(c.Lines)
}

func (c PackageCommand) Validate() error {
	if err := c.Actor.validate(); err != nil {
		return err
	}
	if c.Order == "" {
		return ledger.NewValidationError("order", "is required")
	}
	return validateLines(c.Lines)
}

func (c TransferCommand) Validate() error {
	if err := c.Actor.validate(); err != nil {
		return err
	}
	if !c.Kind.IsTransfer() {
		return ledger.NewValidationError("kind", "must be moving or divide")
	}
	if c.Destination == "" {
		return ledger.NewValidationError("destination", "is required")
	}
	if c.Destination == c.Profile {
		return ledger.NewValidationError("destination", "must differ from the source profile")
	}
	if c.Kind == StatusDivide && (c.Order == nil || *c.Order == "") {
		return ledger.NewValidationError("order", "is required for divide")
	}
	return validateLines(c.Lines)
}

func (c CancelCommand) Validate() error {
	if c.StockID == "" {
		return ledger.NewValidationError("stock_id", "is required")
	}
	return nil
}

func (c DeleteCommand) Validate() error {
	if c.StockID == "" {
		return ledger.NewValidationError("stock_id", "is required")
	}
	return nil
}

func (a Actor) validate() error {
	if a.Profile == "" {
		return ledger.NewValidationError("profile", "is required")
	}
	return nil
}

func validateLines(lines []MaterialLine) error {
	if len(lines) == 0 {
		return ledger.NewValidationError("lines", "at least one line is required")
	}
	for _, line := range lines {
		if err := line.validate(); err != nil {
			return err
		}
	}
	return nil
}
