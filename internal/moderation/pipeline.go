package moderation

// Pipeline bundles the scan and its consequences behind one surface for the
// router: Scan comes from the engine, Apply from the escalator.
type Pipeline struct {
	*Engine
	*Escalator
}

func NewPipeline(engine *Engine, escalator *Escalator) *Pipeline {
	return &Pipeline{Engine: engine, Escalator: escalator}
}
