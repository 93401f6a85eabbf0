package fn

// FuncList collects teardown steps registered while a resource is being set up.
// Steps run last-in first-out, so a step may rely on everything registered before it.
type FuncList []func()

// Add appends f, nil is ignored.
func (c *FuncList) Add(f func()) {
	if f == nil {
		return
	}
	*c = append(*c, f)
}

// ToFunction returns a function that runs the collected steps in reverse order.
func (c FuncList) ToFunction() func() {
	return func() {
		for i := len(c) - 1; i >= 0; i-- {
			c[i]()
		}
	}
}

// Execute runs the collected steps in reverse order.
func (c FuncList) Execute() {
	c.ToFunction()()
}
