package workflow

// StageHealth reports whether a configured stage can currently process items.
type StageHealth struct {
	Name   string
	Ready  bool
	Detail string
}

// HealthyStage returns a ready StageHealth for the named stage.
func HealthyStage(name string) StageHealth {
	return StageHealth{Name: name, Ready: true}
}

// UnhealthyStage returns a not-ready StageHealth carrying the reason.
func UnhealthyStage(name, detail string) StageHealth {
	return StageHealth{Name: name, Ready: false, Detail: detail}
}
