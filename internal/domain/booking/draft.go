package booking

import "errors"

type Step int

const (
	StepSelectPractitioner Step = iota + 1
	StepDetails
)

var (
	ErrNoPractitioner = errors.New("select a practitioner before continuing")
	ErrWrongStep      = errors.New("action not available at this step")
)

// Draft tracks a booking in progress. Step one must select exactly one
// practitioner before Next moves on to the details.
type Draft struct {
	step           Step
	practitionerID int64
	form           Form
}

func NewDraft() *Draft {
	return &Draft{step: StepSelectPractitioner}
}

func (d *Draft) Step() Step { return d.step }

func (d *Draft) PractitionerID() int64 { return d.practitionerID }

// SelectPractitioner replaces any earlier choice.
func (d *Draft) SelectPractitioner(id int64) error {
	if d.step != StepSelectPractitioner {
		return ErrWrongStep
	}
	if id <= 0 {
		return ErrNoPractitioner
	}
	d.practitionerID = id
	return nil
}

func (d *Draft) Next() error {
	if d.step != StepSelectPractitioner {
		return ErrWrongStep
	}
	if d.practitionerID <= 0 {
		return ErrNoPractitioner
	}
	d.step = StepDetails
	return nil
}

// Back returns to practitioner selection. Details entered so far are kept.
func (d *Draft) Back() {
	d.step = StepSelectPractitioner
}

func (d *Draft) SetDetails(f Form) error {
	if d.step != StepDetails {
		return ErrWrongStep
	}
	d.form = f
	return nil
}

// Form returns the details with the selected practitioner filled in.
func (d *Draft) Form() Form {
	f := d.form
	f.PractitionerID = d.practitionerID
	return f
}
