package planner

// Strategy names accepted in queries and configuration
const (
	StrategyFirstVisit = "first_visit"
	StrategyEarliest   = "earliest"
)

// Strategy decides how the traversal treats stations that were already expanded
type Strategy interface {
	Name() string
	// Reopens reports whether an expanded station is relaxed again
	// when a strictly earlier arrival is found for it
	Reopens() bool
}

// FirstVisitStrategy finalizes a station the first time it is dequeued.
// A later, earlier arrival at an expanded station is ignored.
type FirstVisitStrategy struct{}

func (s *FirstVisitStrategy) Name() string {
	return StrategyFirstVisit
}

func (s *FirstVisitStrategy) Reopens() bool {
	return false
}

// EarliestArrivalStrategy keeps correcting labels: an expanded station whose
// arrival improves is queued and expanded again
type EarliestArrivalStrategy struct{}

func (s *EarliestArrivalStrategy) Name() string {
	return StrategyEarliest
}

func (s *EarliestArrivalStrategy) Reopens() bool {
	return true
}

// GetStrategy returns a strategy by name
func GetStrategy(name string) Strategy {
	switch name {
	case StrategyFirstVisit:
		return &FirstVisitStrategy{}
	case StrategyEarliest:
		return &EarliestArrivalStrategy{}
	default:
		return &FirstVisitStrategy{}
	}
}

// GetAllStrategies returns all available strategies
func GetAllStrategies() []Strategy {
	return []Strategy{
		&FirstVisitStrategy{},
		&EarliestArrivalStrategy{},
	}
}
