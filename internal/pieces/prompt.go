package pieces

// Prompter asks the operator for input during execution.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)

	// WaitForEnter shows message and blocks until the operator continues.
	WaitForEnter(message string) error
}
