package metrics

type ConnState int

const (
	ConnStateIdle ConnState = iota
	ConnStateCheckedOut
	ConnStateProbing
	ConnStateRecycling

	ConnStateCount
)

var connStateString = [ConnStateCount]string{
	ConnStateIdle:       "idle",
	ConnStateCheckedOut: "checked out",
	ConnStateProbing:    "probing",
	ConnStateRecycling:  "recycling",
}

func (T ConnState) String() string {
	if T < 0 || T >= ConnStateCount {
		return "unknown"
	}
	return connStateString[T]
}
