package diag

// Collector accumulates diagnostics for one run. It is passed explicitly
// through the lexer, parser, resolver and interpreter and inspected once by
// the driver when the run is over.
type Collector struct {
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records diagnostics in order.
func (c *Collector) Add(ds ...Diagnostic) {
	c.diags = append(c.diags, ds...)
}

// AddStage records diagnostics produced by the given stage.
func (c *Collector) AddStage(stage Stage, ds ...Diagnostic) {
	for _, d := range ds {
		d.Stage = stage
		c.diags = append(c.diags, d)
	}
}

// Diagnostics returns everything recorded so far.
func (c *Collector) Diagnostics() []Diagnostic {
	return c.diags
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int { return len(c.diags) }

// HasErrors reports whether any error-severity diagnostic was recorded.
// Warnings never count.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// HasStageErrors reports whether an error was recorded by the given stage.
func (c *Collector) HasStageErrors(stage Stage) bool {
	for _, d := range c.diags {
		if d.Severity == Error && d.Stage == stage {
			return true
		}
	}
	return false
}

// Filter returns the diagnostics with the given severity.
func (c *Collector) Filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}
