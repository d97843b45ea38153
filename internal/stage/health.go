package stage

// Health reports whether a pipeline stage and its collaborators are
// ready to accept work. Detail carries the reason when they are not.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
