package pipeline

import (
	"net/http"

	"github.com/saveman71/saveman71.github.io/internal/httperr"
)

type outcomeKind int

const (
	kindContinue outcomeKind = iota
	kindRespond
	kindFail
)

func (k outcomeKind) String() string {
	switch k {
	case kindContinue:
		return "continue"
	case kindRespond:
		return "respond"
	case kindFail:
		return "fail"
	}
	return "unknown"
}

// Outcome is what a stage tells the pipeline after serving a request.
type Outcome struct {
	kind    outcomeKind
	request *http.Request
	err     error
}

// Continue passes the request unchanged to the next stage.
func Continue() Outcome {
	return Outcome{kind: kindContinue}
}

// ContinueWith passes r to the next stage in place of the current request.
func ContinueWith(r *http.Request) Outcome {
	return Outcome{kind: kindContinue, request: r}
}

// Respond reports that the stage wrote the terminal response.
func Respond() Outcome {
	return Outcome{kind: kindRespond}
}

// Fail hands err to the error stage. A stack is attached when err carries
// none.
func Fail(err error) Outcome {
	if err == nil {
		err = httperr.New(http.StatusInternalServerError, "stage failed without an error")
	}
	return Outcome{kind: kindFail, err: httperr.WithStack(err)}
}

// IsContinue reports whether the outcome passes control on.
func (o Outcome) IsContinue() bool { return o.kind == kindContinue }

// IsRespond reports whether the outcome is a terminal response.
func (o Outcome) IsRespond() bool { return o.kind == kindRespond }

// Err returns the error of a failed outcome.
func (o Outcome) Err() error { return o.err }

// Request returns the request carried by ContinueWith, or nil.
func (o Outcome) Request() *http.Request { return o.request }

func (o Outcome) String() string { return o.kind.String() }
