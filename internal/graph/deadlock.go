package graph

// DeadlockThreshold is the number of consecutive blocked services of the same
// head vehicle after which a lane is considered deadlocked.
const DeadlockThreshold = 1000

// deadlockCounter tracks how long one vehicle has been blocked at the head of
// a lane.
type deadlockCounter struct {
	last  Occupant
	count int
}

// observe records a blocked service of v and reports whether the threshold was
// crossed. The counter restarts after flagging.
func (c *deadlockCounter) observe(v Occupant) bool {
	if c.last != v {
		c.last = v
		c.count = 1
		return false
	}
	c.count++
	if c.count > DeadlockThreshold {
		c.count = 0
		return true
	}
	return false
}

func (c *deadlockCounter) reset() {
	c.last = nil
	c.count = 0
}
