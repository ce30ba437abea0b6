package pipeline

import (
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
)

// Routes connects intervention types to the delivery actions that carry them.
type Routes struct {
	byType map[intervention.Type]string
}

// NewRoutes creates an empty routing table.
func NewRoutes() *Routes {
	return &Routes{byType: make(map[intervention.Type]string)}
}

// RoutesFromConfig builds the table from the deliveries section.
func RoutesFromConfig(deliveries map[string]string) (*Routes, error) {
	r := NewRoutes()
	for typ, actionID := range deliveries {
		t := intervention.Type(typ)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown intervention type in deliveries: %s", typ)
		}
		r.Route(t, actionID)
	}
	return r, nil
}

// Route sends interventions of type t through actionID.
func (r *Routes) Route(t intervention.Type, actionID string) *Routes {
	r.byType[t] = actionID
	return r
}

// ActionFor returns the action delivering t.
func (r *Routes) ActionFor(t intervention.Type) (string, bool) {
	id, ok := r.byType[t]
	return id, ok
}

// Missing lists intervention types without a route, in cost order.
func (r *Routes) Missing() []intervention.Type {
	var out []intervention.Type
	for _, t := range intervention.Types() {
		if _, ok := r.byType[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
