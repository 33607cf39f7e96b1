package api

import (
	"github.com/JaimeStill/dermis/internal/diagnostic"
	"github.com/JaimeStill/dermis/internal/history"
	"github.com/JaimeStill/dermis/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Diagnostic diagnostic.System
	History    history.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Diagnostic: diagnostic.New(
			runtime.Remote,
			runtime.Images,
			runtime.Sessions,
			runtime.Logger,
		),
		History: history.New(
			runtime.Remote,
			runtime.Images,
			runtime.Pagination,
			runtime.Sessions,
			runtime.Logger,
		),
	}
}

// Start registers the session sweepers of every domain system.
func (d *Domain) Start(lc *lifecycle.Coordinator) {
	d.Diagnostic.Start(lc)
	d.History.Start(lc)
}
