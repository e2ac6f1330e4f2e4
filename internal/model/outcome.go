package model

// Verdict is the unparsed text the model returned for one invoice.
// It nominally names vendor, amount, category and decision but is not guaranteed
// to be well-formed.
type Verdict string

// Failure records why one invoice produced no verdict
type Failure struct {
	Kind string `json:"kind"`
	Err  error  `json:"-"`
}

// Error implements error
func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind
	}
	return f.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure classifies err into a Failure
func NewFailure(err error) *Failure {
	return &Failure{Kind: KindOf(err), Err: err}
}

// Outcome is one slot of a BatchResult: exactly one of Verdict or Failure is set.
type Outcome struct {
	ID      string   `json:"id"`                // Filename or upload label, display only
	Verdict Verdict  `json:"verdict,omitempty"` // Model text, passed through unmodified
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the slot carries a verdict
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// BatchResult holds one outcome per submitted invoice, in submission order.
type BatchResult []Outcome

// Counts returns the number of verdicts and failures
func (r BatchResult) Counts() (ok, failed int) {
	for _, o := range r {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
