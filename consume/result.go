package consume

// Status is the terminal state of one requirement.
type Status string

const (
	StatusSatisfied    Status = "satisfied"
	StatusInsufficient Status = "insufficient"
	StatusMissing      Status = "missing"
	// StatusUnspecified is the non-blocking result for "to taste" requirements.
	StatusUnspecified Status = "unspecified"
)

// Provenance records how a quantity was converted into the lot's unit.
type Provenance string

const (
	ProvenanceDeterministic Provenance = "deterministic"
	ProvenanceReference     Provenance = "reference"
	ProvenanceEstimated     Provenance = "estimated"
)

// ConsumedItem is one draw from one lot, in the lot's unit.
type ConsumedItem struct {
	LotID             string     `json:"lot_id"`
	ProductName       string     `json:"product_name"`
	QuantityUsed      float64    `json:"quantity_used"`
	UnitUsed          string     `json:"unit_used"`
	Provenance        Provenance `json:"conversion_provenance"`
	Confidence        float64    `json:"confidence"`
	RemainingQuantity float64    `json:"remaining_quantity"`
}

// Result is the outcome of consuming one requirement. Missing is set only when no lot
// matched; Insufficient when lots matched but could not cover the request.
type Result struct {
	IngredientName    string         `json:"ingredient_name"`
	RequestedQuantity *float64       `json:"requested_quantity"`
	RequestedUnit     string         `json:"requested_unit"`
	ConsumedItems     []ConsumedItem `json:"consumed_items"`
	Insufficient      bool           `json:"insufficient"`
	Missing           bool           `json:"missing"`
	Status            Status         `json:"status"`
	Confidence        float64        `json:"confidence"`
	ShortfallQuantity float64        `json:"shortfall_quantity,omitempty"`
	Warnings          []string       `json:"warnings"`
}

// Blocking reports whether the result prevents a recipe from being cooked.
func (r Result) Blocking() bool {
	return r.Status == StatusMissing || r.Status == StatusInsufficient
}

// Estimated reports whether any draw relied on an estimated conversion.
func (r Result) Estimated() bool {
	for _, it := range r.ConsumedItems {
		if it.Provenance == ProvenanceEstimated {
			return true
		}
	}
	return false
}

func (r *Result) warn(msg string) {
	for _, w := range r.Warnings {
		if w == msg {
			return
		}
	}
	r.Warnings = append(r.Warnings, msg)
}
