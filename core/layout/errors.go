package layout

import "errors"

var (
	// ErrNilSurface is returned when a layout operation has no surface.
	ErrNilSurface = errors.New("nil surface")
	// ErrNilBlock is returned when a nil block is passed for placement.
	ErrNilBlock = errors.New("nil block")
	// ErrNilPage is returned when a nil page is passed for placement.
	ErrNilPage = errors.New("nil page")
	// ErrMissingRef is returned when a block or page has no element ref.
	ErrMissingRef = errors.New("missing element ref")
	// ErrBlockTooTall is returned under OverflowReject when a block does not
	// fit on an empty page.
	ErrBlockTooTall = errors.New("block taller than page budget")
	// ErrInvalidPageConfig is returned for page geometry with no usable budget.
	ErrInvalidPageConfig = errors.New("invalid page configuration")
)
