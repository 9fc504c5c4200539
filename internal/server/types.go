package server

// FactorParseError is a rejected 'n' parameter with the HTTP status to send.
type FactorParseError struct {
	Message    string
	StatusCode int
}

func (e FactorParseError) Error() string {
	return e.Message
}
