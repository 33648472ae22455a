package stpipe

// Pipeline is a Step whose Process delegates, in declared order, to a fixed
// sequence of child steps, each child's output feeding the next child's
// input. Children run through the same Call wrapper, so every child stamps
// provenance and logs under its own name and pipelines nest freely. A child
// failure is fatal; the pipeline adds no retry or suppression.
type Pipeline struct {
	name  string
	steps []Step
}

// Ensure Pipeline satisfies the Step contract so pipelines compose.
var _ Step = (*Pipeline)(nil)

// NewPipeline creates a pipeline from child steps in execution order.
func NewPipeline(name string, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: steps}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Steps returns the child steps in execution order.
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// Process runs the children in order.
func (p *Pipeline) Process(sc *Context, t *Target) (*Target, error) {
	current := t
	for _, step := range p.steps {
		result, err := sc.runner.Call(step, current)
		if err != nil {
			return nil, err
		}
		current = result
	}
	return current, nil
}
