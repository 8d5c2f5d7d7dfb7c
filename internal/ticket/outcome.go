package ticket

import "fmt"

type Stage int

const (
	StageEditLink Stage = iota
	StageConfigLink
	StageToken
	StageTokenSeed
	StageCreate
	StageTokenRefresh
	StageOrderId
)

func (s Stage) String() string {
	switch s {
	case StageEditLink:
		return "edit-link"
	case StageConfigLink:
		return "config-link"
	case StageToken:
		return "token"
	case StageTokenSeed:
		return "token-seed"
	case StageCreate:
		return "create"
	case StageTokenRefresh:
		return "token-refresh"
	case StageOrderId:
		return "order-id"
	}
	return "unknown"
}

type Kind int

const (
	// Success carries the id of the created work order.
	Success Kind = iota
	// NotFound means a page did not contain what the next step needs.
	NotFound
	// SemanticMismatch means the creation response was not the expected
	// acknowledgement, Body holds it verbatim.
	SemanticMismatch
	// RemoteFailure means a request itself failed, Err holds the cause.
	RemoteFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not-found"
	case SemanticMismatch:
		return "semantic-mismatch"
	case RemoteFailure:
		return "remote-failure"
	}
	return "unknown"
}

// Outcome is the result of one ticket creation. Only the fields relevant to
// Kind are set.
type Outcome struct {
	Kind  Kind
	Stage Stage
	Id    string
	Body  string
	Err   error
}

func (o Outcome) Ok() bool {
	return o.Kind == Success
}

// Message renders the outcome the way it is shown to a user: the work order
// id on success, the raw portal response on a mismatch and a description
// otherwise.
func (o Outcome) Message() string {
	switch o.Kind {
	case Success:
		return o.Id
	case SemanticMismatch:
		return o.Body
	case RemoteFailure:
		if o.Err == nil {
			return fmt.Sprintf("request failed at %s", o.Stage)
		}
		return fmt.Sprintf("request failed at %s: %s", o.Stage, o.Err.Error())
	case NotFound:
		switch o.Stage {
		case StageEditLink:
			return "no edit link found"
		case StageConfigLink:
			return "no config link found"
		case StageToken:
			return "no token found"
		case StageOrderId:
			return "no work order id found"
		}
		return fmt.Sprintf("nothing found at %s", o.Stage)
	}
	return "unknown outcome"
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s(%s): %s", o.Kind, o.Stage, o.Message())
}
