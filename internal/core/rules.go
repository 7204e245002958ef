package core

import "virag/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in plausibility
// rule set, evaluated in dependency order: support, foundation, sequence.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(StructuralSupportRule())
	engine.Register(FoundationPresenceRule())
	engine.Register(ConstructionSequenceRule())
	return engine
}
