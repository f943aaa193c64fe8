package stage

// Health reports whether a stage can currently process items.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy returns a ready Health for the named stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy returns a not-ready Health carrying the reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
