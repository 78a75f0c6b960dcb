package ports

// Interactor abstracts user-facing output so commands can drive a real
// terminal or stay silent under test.
type Interactor interface {
	Output(message string)
	Warning(message string)
	Error(message string, err error)
	Table(header []string, rows [][]string)
	StartSpinner(message string)
	StopSpinner(success bool, message string)
}
